/*
Package main is the line-oriented RESC client.

It asks the tracker (one port above the given chat port) for a chat server, logs in, then
sends every stdin line as a command and prints every message the server delivers.
*/
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"resc/internal/app/client"
	"resc/internal/app/protocol"
	"resc/internal/configs"
	"resc/internal/pkg/logx"
)

var errQuit = errors.New("quit")

func main() {
	cfg, err := configs.LoadConfig(configs.RoleClient, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLoggerTo(os.Stderr, cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host, err := client.Locate(ctx, client.TrackerAddr(cfg.Host, cfg.Port))
	if errors.Is(err, client.ErrNoServer) {
		logx.Fatal(err, "Tracker has no chat server available")
	}
	if err != nil {
		logx.Fatal(err, "Failed to contact tracker")
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	c, err := login(ctx, client.ServerAddr(host, cfg.Port), cfg.Username, cfg.Password, lines)
	if err != nil {
		logx.Fatal(err, "Login failed")
	}
	fmt.Printf("Connected to %s as %s. Type /quit to leave.\n", host, c.Username())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			msg, err := c.Receive()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			if line := render(msg, c.Username()); line != "" {
				fmt.Println(line)
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return c.Close()
			case line, ok := <-lines:
				if !ok || protocol.IsQuit(line) {
					_ = c.Quit()
					return errQuit
				}
				if line == "" {
					continue
				}
				if err := c.Send(line); err != nil {
					return err
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		logx.Fatal(err, "Connection lost")
	}
}

// login authenticates, asking for a new password on stdin after each rejection. Every
// attempt goes over the same connection.
func login(ctx context.Context, addr, username, password string, lines <-chan string) (*client.Client, error) {
	c, err := client.Connect(ctx, addr)
	if err != nil {
		return nil, err
	}

	err = c.Login(username, password)
	for errors.Is(err, client.ErrAuthRejected) {
		fmt.Printf("Login for %s rejected. Enter password: ", username)
		line, ok := <-lines
		if !ok {
			break
		}
		err = c.Retry(line)
	}
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func render(msg protocol.Message, self string) string {
	switch msg.Kind {
	case protocol.Direct:
		return fmt.Sprintf("[%s -> %s] %s", msg.From, self, msg.Body)
	case protocol.Broadcast:
		return fmt.Sprintf("[%s] %s", msg.From, msg.Body)
	case protocol.FileStream:
		return fmt.Sprintf("[%s sent a file] %s", msg.From, msg.Body)
	case protocol.UserList:
		return msg.Body
	default:
		return ""
	}
}
