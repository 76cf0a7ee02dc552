package main

import (
	"context"
	"strings"

	v1 "github.com/PaulBabatuyi/campus-messaging/api/messaging/v1"
	"github.com/PaulBabatuyi/campus-messaging/internal/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// methods that don't require authentication
var publicMethods = map[string]bool{
	v1.MessagingService_Register_FullMethodName: true,
	v1.MessagingService_Login_FullMethodName:    true,
}

// bearerToken extracts the token from an "authorization: Bearer <token>" value.
func bearerToken(header string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), "Bearer"))
}

// authenticate verifies the bearer token in ctx's metadata and returns a
// context carrying the claims.
func authenticate(ctx context.Context, j *auth.JWTManager) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Errorf(codes.Unauthenticated, "missing metadata")
	}
	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return nil, status.Errorf(codes.Unauthenticated, "missing authorization header")
	}

	token := bearerToken(authHeaders[0])
	if token == "" {
		return nil, status.Errorf(codes.Unauthenticated, "invalid token")
	}

	claims, err := j.VerifyToken(token)
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "unauthenticated: %v", err)
	}
	return auth.WithClaims(ctx, claims), nil
}

// authUnaryInterceptor returns a UnaryServerInterceptor that enforces JWT authentication
// for all methods except the allowed unauthenticated list (Register, Login).
func authUnaryInterceptor(j *auth.JWTManager) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		ctx, err := authenticate(ctx, j)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// authStreamInterceptor is the stream equivalent of authUnaryInterceptor.
func authStreamInterceptor(j *auth.JWTManager) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if publicMethods[info.FullMethod] {
			return handler(srv, ss)
		}
		ctx, err := authenticate(ss.Context(), j)
		if err != nil {
			return err
		}
		return handler(srv, claimsServerStream{ServerStream: ss, ctx: ctx})
	}
}

// claimsServerStream wraps grpc.ServerStream to override Context()
type claimsServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context (with claims)
func (g claimsServerStream) Context() context.Context { return g.ctx }
