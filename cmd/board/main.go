package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chatboard/pkg/config"
	"chatboard/pkg/envelope"
	"chatboard/pkg/hub"
	"chatboard/pkg/logger"
	"chatboard/pkg/models"
	"chatboard/pkg/session"
	"chatboard/pkg/tui"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "path to the YAML config file")
	logPath := flag.String("log", "board.log", "file the client logs to")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// the terminal belongs to the UI, so logs go to a file
	log, err := logger.NewLogger(cfg.Log.Level, *logPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := hub.NewClient(cfg.Client.URL, log)
	sess := session.New(client, log)
	client.On(envelope.EventNewPost, sess.Handle)

	p := tea.NewProgram(tui.New(sess), tea.WithAltScreen(), tea.WithContext(ctx))
	sess.OnPost(func(post models.Post) {
		p.Send(tui.PostArrivedMsg{Post: post})
	})

	go client.Connect(ctx)
	defer client.Close()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		log.Error("terminal ui exited", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
