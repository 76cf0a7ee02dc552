// Command chatctl is a terminal client for the messaging service.
//
//	chatctl register -email a@b.c -password secret -username alice
//	chatctl login -email a@b.c -password secret
//	chatctl conversations
//	chatctl chat -with <userID>
//	chatctl notifications
//
// login and register print the token; export it as CHAT_TOKEN (and the user
// id as CHAT_USER) for the other commands.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/PaulBabatuyi/campus-messaging/internal/chatclient"
	"github.com/PaulBabatuyi/campus-messaging/internal/messaging"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	addr := fs.String("addr", envOr("CHAT_ADDR", "localhost:50051"), "server address")
	token := fs.String("token", os.Getenv("CHAT_TOKEN"), "session token")
	user := fs.String("user", os.Getenv("CHAT_USER"), "session user id")

	var err error
	switch cmd {
	case "register":
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		username := fs.String("username", "", "display name")
		_ = fs.Parse(args)
		err = withClient(*addr, "", "", func(c *chatclient.Client) error {
			resp, err := c.Register(ctx, *email, *password, *username)
			if err != nil {
				return err
			}
			fmt.Printf("CHAT_TOKEN=%s\nCHAT_USER=%s\n", resp.Token, resp.UserID)
			return nil
		})
	case "login":
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		_ = fs.Parse(args)
		err = withClient(*addr, "", "", func(c *chatclient.Client) error {
			resp, err := c.Login(ctx, *email, *password)
			if err != nil {
				return err
			}
			fmt.Printf("CHAT_TOKEN=%s\nCHAT_USER=%s\n", resp.Token, resp.UserID)
			return nil
		})
	case "conversations":
		_ = fs.Parse(args)
		err = withClient(*addr, *token, *user, func(c *chatclient.Client) error {
			return listConversations(ctx, c)
		})
	case "notifications":
		limit := fs.Int64("limit", 20, "how many to show")
		_ = fs.Parse(args)
		err = withClient(*addr, *token, *user, func(c *chatclient.Client) error {
			ns, err := c.Notifications(ctx, *limit)
			if err != nil {
				return err
			}
			for _, n := range ns {
				mark := " "
				if !n.Read {
					mark = "*"
				}
				fmt.Printf("%s %s  %s: %s\n", mark, n.CreatedAt.Local().Format(time.Stamp), n.SenderProfile.Username, n.Message)
			}
			return nil
		})
	case "chat":
		with := fs.String("with", "", "user id to chat with")
		conv := fs.String("conv", "", "conversation id (instead of -with)")
		_ = fs.Parse(args)
		err = withClient(*addr, *token, *user, func(c *chatclient.Client) error {
			return chat(ctx, c, *conv, *with)
		})
	default:
		usage()
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: chatctl register|login|conversations|notifications|chat [flags]")
	os.Exit(2)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func withClient(addr, token, user string, fn func(*chatclient.Client) error) error {
	c, err := chatclient.Dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()
	if token != "" {
		c.SetSession(token, user)
	}
	return fn(c)
}

func listConversations(ctx context.Context, c *chatclient.Client) error {
	resp, err := c.Conversations(ctx)
	if err != nil {
		return err
	}
	for _, conv := range resp.Conversations {
		var names []string
		for _, p := range conv.Participants {
			if p.UserID != c.UserID() {
				names = append(names, p.Username)
			}
		}
		mark := " "
		if conv.UnreadForMe {
			mark = "*"
		}
		last := ""
		if conv.LastMessage != nil {
			last = conv.LastMessage.Text
		}
		fmt.Printf("%s %s  %-20s %s\n", mark, conv.ID, strings.Join(names, ", "), last)
	}
	fmt.Printf("%d unread\n", resp.UnreadCount)
	return nil
}

// chat opens a conversation, prints its timeline as it changes and sends
// each stdin line. "/retry" resends every failed entry.
func chat(ctx context.Context, c *chatclient.Client, convID, with string) error {
	if convID == "" {
		if with == "" {
			return fmt.Errorf("need -with or -conv")
		}
		id, err := c.Conversation(ctx, with)
		if err != nil {
			return err
		}
		convID = id
	}
	v, err := c.Open(ctx, convID)
	if err != nil {
		return err
	}
	defer v.Close()

	shown := make(map[string]messaging.EntryState)
	render := func() {
		for _, e := range v.Entries() {
			key := e.ClientRef
			if key == "" {
				key = e.Message.ID
			}
			prev, seen := shown[key]
			shown[key] = e.State
			// a confirmed pending line was already printed
			if seen && (prev == e.State || (prev == messaging.StatePending && e.State == messaging.StateSent)) {
				continue
			}
			fmt.Println(formatEntry(e))
		}
	}
	render()

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-v.Done():
			render()
			if ctx.Err() != nil {
				return nil
			}
			return v.Err()
		case <-v.Changes():
			render()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "":
			case line == "/retry":
				for _, e := range v.Entries() {
					if e.State == messaging.StateFailed {
						_ = v.Retry(ctx, e.ClientRef)
					}
				}
			default:
				if _, err := v.Send(ctx, messaging.TextPayload(line)); err != nil {
					fmt.Fprintf(os.Stderr, "send: %v\n", err)
				}
			}
			render()
		}
	}
}

func formatEntry(e messaging.Entry) string {
	body := e.Message.Text
	if body == "" {
		body = fmt.Sprintf("[%s] %s", e.Message.FileType, firstNonEmpty(e.Message.ImageURL, e.Message.VideoURL, e.Message.AudioURL))
	}
	line := fmt.Sprintf("%s %s: %s", e.Message.CreatedAt.Local().Format(time.Kitchen), e.Message.SenderID, body)
	switch e.State {
	case messaging.StatePending:
		line += "  (sending)"
	case messaging.StateFailed:
		line += fmt.Sprintf("  (failed: %v, /retry)", e.Err)
	}
	return line
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
