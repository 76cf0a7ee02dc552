package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "messaging.v1.MessagingService"

const (
	MessagingService_Register_FullMethodName                 = "/messaging.v1.MessagingService/Register"
	MessagingService_Login_FullMethodName                    = "/messaging.v1.MessagingService/Login"
	MessagingService_UpdateProfile_FullMethodName            = "/messaging.v1.MessagingService/UpdateProfile"
	MessagingService_GetOrCreateConversation_FullMethodName  = "/messaging.v1.MessagingService/GetOrCreateConversation"
	MessagingService_ListConversations_FullMethodName        = "/messaging.v1.MessagingService/ListConversations"
	MessagingService_DeleteConversation_FullMethodName       = "/messaging.v1.MessagingService/DeleteConversation"
	MessagingService_SendMessage_FullMethodName              = "/messaging.v1.MessagingService/SendMessage"
	MessagingService_GetHistory_FullMethodName               = "/messaging.v1.MessagingService/GetHistory"
	MessagingService_DeleteMessage_FullMethodName            = "/messaging.v1.MessagingService/DeleteMessage"
	MessagingService_MarkRead_FullMethodName                 = "/messaging.v1.MessagingService/MarkRead"
	MessagingService_ListNotifications_FullMethodName        = "/messaging.v1.MessagingService/ListNotifications"
	MessagingService_MarkNotificationRead_FullMethodName     = "/messaging.v1.MessagingService/MarkNotificationRead"
	MessagingService_RegisterPushSubscription_FullMethodName = "/messaging.v1.MessagingService/RegisterPushSubscription"
	MessagingService_Subscribe_FullMethodName                = "/messaging.v1.MessagingService/Subscribe"
	MessagingService_WatchConversations_FullMethodName       = "/messaging.v1.MessagingService/WatchConversations"
	MessagingService_WatchNotifications_FullMethodName       = "/messaging.v1.MessagingService/WatchNotifications"
	MessagingService_WatchErrors_FullMethodName              = "/messaging.v1.MessagingService/WatchErrors"
)

// MessagingServiceServer is the server API for MessagingService.
// Implementations must embed UnimplementedMessagingServiceServer.
type MessagingServiceServer interface {
	Register(context.Context, *RegisterRequest) (*AuthResponse, error)
	Login(context.Context, *LoginRequest) (*AuthResponse, error)
	UpdateProfile(context.Context, *UpdateProfileRequest) (*Profile, error)
	GetOrCreateConversation(context.Context, *GetOrCreateConversationRequest) (*GetOrCreateConversationResponse, error)
	ListConversations(context.Context, *ListConversationsRequest) (*ListConversationsResponse, error)
	DeleteConversation(context.Context, *DeleteConversationRequest) (*Empty, error)
	SendMessage(context.Context, *SendMessageRequest) (*Message, error)
	GetHistory(context.Context, *GetHistoryRequest) (*GetHistoryResponse, error)
	DeleteMessage(context.Context, *DeleteMessageRequest) (*Empty, error)
	MarkRead(context.Context, *MarkReadRequest) (*MarkReadResponse, error)
	ListNotifications(context.Context, *ListNotificationsRequest) (*ListNotificationsResponse, error)
	MarkNotificationRead(context.Context, *MarkNotificationReadRequest) (*Empty, error)
	RegisterPushSubscription(context.Context, *RegisterPushSubscriptionRequest) (*Empty, error)
	Subscribe(*SubscribeRequest, grpc.ServerStreamingServer[ConversationEvent]) error
	WatchConversations(*WatchConversationsRequest, grpc.ServerStreamingServer[InboxEvent]) error
	WatchNotifications(*WatchNotificationsRequest, grpc.ServerStreamingServer[NotificationEvent]) error
	WatchErrors(*WatchErrorsRequest, grpc.ServerStreamingServer[WriteError]) error
	mustEmbedUnimplementedMessagingServiceServer()
}

type UnimplementedMessagingServiceServer struct{}

func (UnimplementedMessagingServiceServer) Register(context.Context, *RegisterRequest) (*AuthResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Register not implemented")
}
func (UnimplementedMessagingServiceServer) Login(context.Context, *LoginRequest) (*AuthResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}
func (UnimplementedMessagingServiceServer) UpdateProfile(context.Context, *UpdateProfileRequest) (*Profile, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateProfile not implemented")
}
func (UnimplementedMessagingServiceServer) GetOrCreateConversation(context.Context, *GetOrCreateConversationRequest) (*GetOrCreateConversationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOrCreateConversation not implemented")
}
func (UnimplementedMessagingServiceServer) ListConversations(context.Context, *ListConversationsRequest) (*ListConversationsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListConversations not implemented")
}
func (UnimplementedMessagingServiceServer) DeleteConversation(context.Context, *DeleteConversationRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteConversation not implemented")
}
func (UnimplementedMessagingServiceServer) SendMessage(context.Context, *SendMessageRequest) (*Message, error) {
	return nil, status.Error(codes.Unimplemented, "method SendMessage not implemented")
}
func (UnimplementedMessagingServiceServer) GetHistory(context.Context, *GetHistoryRequest) (*GetHistoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetHistory not implemented")
}
func (UnimplementedMessagingServiceServer) DeleteMessage(context.Context, *DeleteMessageRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteMessage not implemented")
}
func (UnimplementedMessagingServiceServer) MarkRead(context.Context, *MarkReadRequest) (*MarkReadResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method MarkRead not implemented")
}
func (UnimplementedMessagingServiceServer) ListNotifications(context.Context, *ListNotificationsRequest) (*ListNotificationsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListNotifications not implemented")
}
func (UnimplementedMessagingServiceServer) MarkNotificationRead(context.Context, *MarkNotificationReadRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method MarkNotificationRead not implemented")
}
func (UnimplementedMessagingServiceServer) RegisterPushSubscription(context.Context, *RegisterPushSubscriptionRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method RegisterPushSubscription not implemented")
}
func (UnimplementedMessagingServiceServer) Subscribe(*SubscribeRequest, grpc.ServerStreamingServer[ConversationEvent]) error {
	return status.Error(codes.Unimplemented, "method Subscribe not implemented")
}
func (UnimplementedMessagingServiceServer) WatchConversations(*WatchConversationsRequest, grpc.ServerStreamingServer[InboxEvent]) error {
	return status.Error(codes.Unimplemented, "method WatchConversations not implemented")
}
func (UnimplementedMessagingServiceServer) WatchNotifications(*WatchNotificationsRequest, grpc.ServerStreamingServer[NotificationEvent]) error {
	return status.Error(codes.Unimplemented, "method WatchNotifications not implemented")
}
func (UnimplementedMessagingServiceServer) WatchErrors(*WatchErrorsRequest, grpc.ServerStreamingServer[WriteError]) error {
	return status.Error(codes.Unimplemented, "method WatchErrors not implemented")
}
func (UnimplementedMessagingServiceServer) mustEmbedUnimplementedMessagingServiceServer() {}

func RegisterMessagingServiceServer(s grpc.ServiceRegistrar, srv MessagingServiceServer) {
	s.RegisterService(&MessagingService_ServiceDesc, srv)
}

func unary[Req, Res any](method string, call func(MessagingServiceServer, context.Context, *Req) (*Res, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MessagingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(MessagingServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func serverStream[Req, Res any](call func(MessagingServiceServer, *Req, grpc.ServerStreamingServer[Res]) error) grpc.StreamHandler {
	return func(srv any, stream grpc.ServerStream) error {
		in := new(Req)
		if err := stream.RecvMsg(in); err != nil {
			return err
		}
		return call(srv.(MessagingServiceServer), in, &grpc.GenericServerStream[Req, Res]{ServerStream: stream})
	}
}

var MessagingService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MessagingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unary(MessagingService_Register_FullMethodName, MessagingServiceServer.Register)},
		{MethodName: "Login", Handler: unary(MessagingService_Login_FullMethodName, MessagingServiceServer.Login)},
		{MethodName: "UpdateProfile", Handler: unary(MessagingService_UpdateProfile_FullMethodName, MessagingServiceServer.UpdateProfile)},
		{MethodName: "GetOrCreateConversation", Handler: unary(MessagingService_GetOrCreateConversation_FullMethodName, MessagingServiceServer.GetOrCreateConversation)},
		{MethodName: "ListConversations", Handler: unary(MessagingService_ListConversations_FullMethodName, MessagingServiceServer.ListConversations)},
		{MethodName: "DeleteConversation", Handler: unary(MessagingService_DeleteConversation_FullMethodName, MessagingServiceServer.DeleteConversation)},
		{MethodName: "SendMessage", Handler: unary(MessagingService_SendMessage_FullMethodName, MessagingServiceServer.SendMessage)},
		{MethodName: "GetHistory", Handler: unary(MessagingService_GetHistory_FullMethodName, MessagingServiceServer.GetHistory)},
		{MethodName: "DeleteMessage", Handler: unary(MessagingService_DeleteMessage_FullMethodName, MessagingServiceServer.DeleteMessage)},
		{MethodName: "MarkRead", Handler: unary(MessagingService_MarkRead_FullMethodName, MessagingServiceServer.MarkRead)},
		{MethodName: "ListNotifications", Handler: unary(MessagingService_ListNotifications_FullMethodName, MessagingServiceServer.ListNotifications)},
		{MethodName: "MarkNotificationRead", Handler: unary(MessagingService_MarkNotificationRead_FullMethodName, MessagingServiceServer.MarkNotificationRead)},
		{MethodName: "RegisterPushSubscription", Handler: unary(MessagingService_RegisterPushSubscription_FullMethodName, MessagingServiceServer.RegisterPushSubscription)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: serverStream(MessagingServiceServer.Subscribe), ServerStreams: true},
		{StreamName: "WatchConversations", Handler: serverStream(MessagingServiceServer.WatchConversations), ServerStreams: true},
		{StreamName: "WatchNotifications", Handler: serverStream(MessagingServiceServer.WatchNotifications), ServerStreams: true},
		{StreamName: "WatchErrors", Handler: serverStream(MessagingServiceServer.WatchErrors), ServerStreams: true},
	},
	Metadata: "messaging/v1/messaging.go",
}

// MessagingServiceClient is the client API for MessagingService. Every call
// is sent with the JSON content-subtype.
type MessagingServiceClient interface {
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*AuthResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*AuthResponse, error)
	UpdateProfile(ctx context.Context, in *UpdateProfileRequest, opts ...grpc.CallOption) (*Profile, error)
	GetOrCreateConversation(ctx context.Context, in *GetOrCreateConversationRequest, opts ...grpc.CallOption) (*GetOrCreateConversationResponse, error)
	ListConversations(ctx context.Context, in *ListConversationsRequest, opts ...grpc.CallOption) (*ListConversationsResponse, error)
	DeleteConversation(ctx context.Context, in *DeleteConversationRequest, opts ...grpc.CallOption) (*Empty, error)
	SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*Message, error)
	GetHistory(ctx context.Context, in *GetHistoryRequest, opts ...grpc.CallOption) (*GetHistoryResponse, error)
	DeleteMessage(ctx context.Context, in *DeleteMessageRequest, opts ...grpc.CallOption) (*Empty, error)
	MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error)
	ListNotifications(ctx context.Context, in *ListNotificationsRequest, opts ...grpc.CallOption) (*ListNotificationsResponse, error)
	MarkNotificationRead(ctx context.Context, in *MarkNotificationReadRequest, opts ...grpc.CallOption) (*Empty, error)
	RegisterPushSubscription(ctx context.Context, in *RegisterPushSubscriptionRequest, opts ...grpc.CallOption) (*Empty, error)
	Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ConversationEvent], error)
	WatchConversations(ctx context.Context, in *WatchConversationsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[InboxEvent], error)
	WatchNotifications(ctx context.Context, in *WatchNotificationsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[NotificationEvent], error)
	WatchErrors(ctx context.Context, in *WatchErrorsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[WriteError], error)
}

type messagingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewMessagingServiceClient(cc grpc.ClientConnInterface) MessagingServiceClient {
	return &messagingServiceClient{cc}
}

func callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.StaticMethod(), grpc.CallContentSubtype(CodecName)}, opts...)
}

func invoke[Req, Res any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts []grpc.CallOption) (*Res, error) {
	out := new(Res)
	if err := cc.Invoke(ctx, method, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func openStream[Req, Res any](ctx context.Context, cc grpc.ClientConnInterface, desc *grpc.StreamDesc, method string, in *Req, opts []grpc.CallOption) (grpc.ServerStreamingClient[Res], error) {
	stream, err := cc.NewStream(ctx, desc, method, callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[Req, Res]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *messagingServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[RegisterRequest, AuthResponse](ctx, c.cc, MessagingService_Register_FullMethodName, in, opts)
}

func (c *messagingServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[LoginRequest, AuthResponse](ctx, c.cc, MessagingService_Login_FullMethodName, in, opts)
}

func (c *messagingServiceClient) UpdateProfile(ctx context.Context, in *UpdateProfileRequest, opts ...grpc.CallOption) (*Profile, error) {
	return invoke[UpdateProfileRequest, Profile](ctx, c.cc, MessagingService_UpdateProfile_FullMethodName, in, opts)
}

func (c *messagingServiceClient) GetOrCreateConversation(ctx context.Context, in *GetOrCreateConversationRequest, opts ...grpc.CallOption) (*GetOrCreateConversationResponse, error) {
	return invoke[GetOrCreateConversationRequest, GetOrCreateConversationResponse](ctx, c.cc, MessagingService_GetOrCreateConversation_FullMethodName, in, opts)
}

func (c *messagingServiceClient) ListConversations(ctx context.Context, in *ListConversationsRequest, opts ...grpc.CallOption) (*ListConversationsResponse, error) {
	return invoke[ListConversationsRequest, ListConversationsResponse](ctx, c.cc, MessagingService_ListConversations_FullMethodName, in, opts)
}

func (c *messagingServiceClient) DeleteConversation(ctx context.Context, in *DeleteConversationRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[DeleteConversationRequest, Empty](ctx, c.cc, MessagingService_DeleteConversation_FullMethodName, in, opts)
}

func (c *messagingServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*Message, error) {
	return invoke[SendMessageRequest, Message](ctx, c.cc, MessagingService_SendMessage_FullMethodName, in, opts)
}

func (c *messagingServiceClient) GetHistory(ctx context.Context, in *GetHistoryRequest, opts ...grpc.CallOption) (*GetHistoryResponse, error) {
	return invoke[GetHistoryRequest, GetHistoryResponse](ctx, c.cc, MessagingService_GetHistory_FullMethodName, in, opts)
}

func (c *messagingServiceClient) DeleteMessage(ctx context.Context, in *DeleteMessageRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[DeleteMessageRequest, Empty](ctx, c.cc, MessagingService_DeleteMessage_FullMethodName, in, opts)
}

func (c *messagingServiceClient) MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error) {
	return invoke[MarkReadRequest, MarkReadResponse](ctx, c.cc, MessagingService_MarkRead_FullMethodName, in, opts)
}

func (c *messagingServiceClient) ListNotifications(ctx context.Context, in *ListNotificationsRequest, opts ...grpc.CallOption) (*ListNotificationsResponse, error) {
	return invoke[ListNotificationsRequest, ListNotificationsResponse](ctx, c.cc, MessagingService_ListNotifications_FullMethodName, in, opts)
}

func (c *messagingServiceClient) MarkNotificationRead(ctx context.Context, in *MarkNotificationReadRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[MarkNotificationReadRequest, Empty](ctx, c.cc, MessagingService_MarkNotificationRead_FullMethodName, in, opts)
}

func (c *messagingServiceClient) RegisterPushSubscription(ctx context.Context, in *RegisterPushSubscriptionRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[RegisterPushSubscriptionRequest, Empty](ctx, c.cc, MessagingService_RegisterPushSubscription_FullMethodName, in, opts)
}

func (c *messagingServiceClient) Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ConversationEvent], error) {
	return openStream[SubscribeRequest, ConversationEvent](ctx, c.cc, &MessagingService_ServiceDesc.Streams[0], MessagingService_Subscribe_FullMethodName, in, opts)
}

func (c *messagingServiceClient) WatchConversations(ctx context.Context, in *WatchConversationsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[InboxEvent], error) {
	return openStream[WatchConversationsRequest, InboxEvent](ctx, c.cc, &MessagingService_ServiceDesc.Streams[1], MessagingService_WatchConversations_FullMethodName, in, opts)
}

func (c *messagingServiceClient) WatchNotifications(ctx context.Context, in *WatchNotificationsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[NotificationEvent], error) {
	return openStream[WatchNotificationsRequest, NotificationEvent](ctx, c.cc, &MessagingService_ServiceDesc.Streams[2], MessagingService_WatchNotifications_FullMethodName, in, opts)
}

func (c *messagingServiceClient) WatchErrors(ctx context.Context, in *WatchErrorsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[WriteError], error) {
	return openStream[WatchErrorsRequest, WriteError](ctx, c.cc, &MessagingService_ServiceDesc.Streams[3], MessagingService_WatchErrors_FullMethodName, in, opts)
}
