package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/api"
	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/auth"
	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/config"
	clog "github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/log"
	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/metrics"
	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/models"
	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/service"
	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/state"
	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/ws"
)

func main() {
	// main 负责加载配置、初始化日志、装配各层并进入命令循环。
	cfg := config.Load()
	clog.Init(cfg.Env)

	token := os.Getenv("CHAT_TOKEN")
	if token == "" {
		log.Fatal().Msg("CHAT_TOKEN is required")
	}
	tokens := auth.NewTokenSource()
	tokens.Set(token)

	store := state.NewStore()
	store.SetSelf(models.User{
		ID:       os.Getenv("CHAT_USER_ID"),
		Username: os.Getenv("CHAT_USERNAME"),
	})

	rest := api.NewClient(cfg.APIBaseURL, tokens)

	// 回调闭包捕获稍后装配好的 svc 与 dispatcher，打破构造顺序上的环。
	var (
		svc        *service.ChatService
		dispatcher *state.Dispatcher
	)
	conn := ws.NewManager(ws.Options{
		URL:       cfg.WSBaseURL,
		Heartbeat: time.Duration(cfg.HeartbeatSeconds) * time.Second,
		Tokens:    tokens,
		OnFrame:   func(raw []byte) { dispatcher.HandleFrame(raw) },
		OnState:   func(connected bool) { svc.HandleConnState(connected) },
	})
	svc = service.New(store, conn, rest, tokens, time.Duration(cfg.TypingThrottleMS)*time.Millisecond)
	dispatcher = state.NewDispatcher(store, svc.Hooks())

	go func() {
		if err := metrics.DebugRouter().Run(":" + cfg.DebugPort); err != nil {
			log.Fatal().Err(err).Msg("debug server run")
		}
	}()

	svc.Connect()
	repl(svc, store)
	svc.Disconnect()
}

// repl 是一个最小的行命令界面，把用户输入映射到服务层动作。
func repl(svc *service.ChatService, store *state.Store) {
	fmt.Println("commands: rooms | open <room> | send <text> | like | edit <id> <text> | recall <id> | del <id> | pin <id> | react <id> <emoji> | fwd <id> <room> | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]
		var err error
		switch cmd {
		case "quit":
			return
		case "rooms":
			for _, r := range store.Rooms() {
				marker := " "
				if r.IsPinned {
					marker = "*"
				}
				fmt.Printf("%s %-12s (%s) unread=%d  %s\n", marker, r.ID, r.Kind, r.UnreadCount, r.LastMessage)
			}
		case "open":
			if len(args) < 1 {
				err = fmt.Errorf("usage: open <room>")
				break
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = svc.OpenRoom(ctx, args[0])
			cancel()
			if err == nil {
				for _, m := range store.Messages(args[0]) {
					fmt.Printf("[%s] %s: %s\n", m.ID, m.SenderName, m.Content)
				}
			}
		case "send":
			_, err = svc.SendMessage(strings.Join(args, " "), "", nil)
		case "like":
			_, err = svc.SendLike()
		case "edit":
			if len(args) < 2 {
				err = fmt.Errorf("usage: edit <id> <text>")
				break
			}
			err = svc.EditMessage(args[0], strings.Join(args[1:], " "))
		case "recall":
			if len(args) < 1 {
				err = fmt.Errorf("usage: recall <id>")
				break
			}
			err = svc.RecallMessage(args[0])
		case "del":
			if len(args) < 1 {
				err = fmt.Errorf("usage: del <id>")
				break
			}
			err = svc.DeleteForMe(args[0])
		case "pin":
			if len(args) < 1 {
				err = fmt.Errorf("usage: pin <id>")
				break
			}
			err = svc.PinMessage(args[0])
		case "react":
			if len(args) < 2 {
				err = fmt.Errorf("usage: react <id> <emoji>")
				break
			}
			err = svc.ToggleReaction(args[0], args[1])
		case "fwd":
			if len(args) < 2 {
				err = fmt.Errorf("usage: fwd <id> <room>")
				break
			}
			err = svc.ForwardMessage(store.OpenRoomID(), args[0], args[1])
		default:
			err = fmt.Errorf("unknown command %q", cmd)
		}
		if err != nil {
			fmt.Println("error:", err)
		}
	}
}
