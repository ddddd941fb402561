package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/zhouzirui/aura/backend/internal/cache"
	"github.com/zhouzirui/aura/backend/internal/model/chat"
)

var (
	userColor   = color.New(color.Bold)
	aiColor     = color.New(color.FgCyan)
	titleColor  = color.New(color.FgMagenta, color.Bold)
	noticeColor = color.New(color.FgRed)
	infoColor   = color.New(color.FgHiBlack)
	promptColor = color.New(color.FgHiBlue)
)

const helpText = `commands:
  /list              list chats
  /open <n|id>       open a chat
  /new [text]        start a chat, optionally with a first message
  /image <url> [txt] send an image with optional text
  /delete <n|id>     delete a chat
  /close             close the current chat
  /help              show this help
  /quit              exit
anything else is sent to the open chat`

type command struct {
	name string
	args string
}

// parseCommand splits "/open 2" into {open, 2}. Plain text yields an empty name.
func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{args: line}
	}
	name, args, _ := strings.Cut(line[1:], " ")
	return command{name: strings.ToLower(name), args: strings.TrimSpace(args)}
}

type repl struct {
	cache *cache.Cache
	out   io.Writer
}

func (r *repl) notify(n cache.Notice) {
	noticeColor.Fprintf(r.out, "! %s: %v\n", n.Message(), n.Err)
}

func (r *repl) run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptColor.Sprint("> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "/quit",
		HistoryFile:       "/tmp/aurachat.history",
		HistorySearchFold: true,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	if err := r.cache.Refresh(ctx); err == nil {
		r.printChats()
	}
	infoColor.Fprintln(r.out, "type /help for commands")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if quit := r.handle(ctx, parseCommand(line)); quit {
			return nil
		}
		rl.SetPrompt(promptColor.Sprint(r.prompt()))
	}
}

func (r *repl) handle(ctx context.Context, cmd command) bool {
	switch cmd.name {
	case "":
		if cmd.args == "" {
			return false
		}
		r.send(ctx, cmd.args, "")
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(r.out, helpText)
	case "list":
		if err := r.cache.Refresh(ctx); err == nil {
			r.printChats()
		}
	case "open":
		id, ok := r.resolve(cmd.args)
		if !ok {
			return false
		}
		if err := r.cache.Select(ctx, id); err == nil {
			r.printHistory()
		}
	case "new":
		created, err := r.cache.CreateChat(ctx, cmd.args, "")
		if err != nil {
			return false
		}
		titleColor.Fprintf(r.out, "# %s\n", created.Title)
		if cmd.args != "" {
			r.printLastTurn()
		}
	case "image":
		url, text, _ := strings.Cut(cmd.args, " ")
		if url == "" {
			noticeColor.Fprintln(r.out, "usage: /image <url> [text]")
			return false
		}
		r.send(ctx, strings.TrimSpace(text), url)
	case "delete":
		id, ok := r.resolve(cmd.args)
		if !ok {
			return false
		}
		if err := r.cache.Delete(ctx, id); err == nil {
			infoColor.Fprintln(r.out, "Chat deleted successfully")
		}
	case "close":
		r.cache.ClearSelection()
	default:
		noticeColor.Fprintf(r.out, "unknown command /%s\n", cmd.name)
	}
	return false
}

func (r *repl) send(ctx context.Context, text, image string) {
	if r.cache.Snapshot().Current == nil {
		if _, err := r.cache.CreateChat(ctx, text, image); err != nil {
			return
		}
		r.printLastTurn()
		return
	}
	if _, err := r.cache.Send(ctx, text, image); err != nil {
		if errors.Is(err, cache.ErrEmptyMessage) {
			noticeColor.Fprintln(r.out, err)
		}
		return
	}
	r.printLastTurn()
}

// resolve accepts either a 1-based index into the last listed chats or a chat id.
func (r *repl) resolve(arg string) (string, bool) {
	if arg == "" {
		noticeColor.Fprintln(r.out, "a chat number or id is required")
		return "", false
	}
	chats := r.cache.Snapshot().Chats
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(chats) {
		return chats[n-1].ID, true
	}
	return arg, true
}

func (r *repl) prompt() string {
	if cur := r.cache.Snapshot().Current; cur != nil {
		return cur.Title + " > "
	}
	return "> "
}

func (r *repl) printChats() {
	chats := r.cache.Snapshot().Chats
	if len(chats) == 0 {
		infoColor.Fprintln(r.out, "no chats yet")
		return
	}
	for i, c := range chats {
		titleColor.Fprintf(r.out, "%2d. %s", i+1, c.Title)
		infoColor.Fprintf(r.out, "  %s  %s\n", c.UpdatedAt.Local().Format("Jan 2 15:04"), c.LastMessage)
	}
}

func (r *repl) printHistory() {
	s := r.cache.Snapshot()
	if s.Current != nil {
		titleColor.Fprintf(r.out, "# %s\n", s.Current.Title)
	}
	for _, msg := range s.History {
		r.printMessage(msg)
	}
}

func (r *repl) printLastTurn() {
	history := r.cache.Snapshot().History
	start := len(history) - 2
	if start < 0 {
		start = 0
	}
	for _, msg := range history[start:] {
		r.printMessage(msg)
	}
}

func (r *repl) printMessage(msg chat.Message) {
	switch msg.Role {
	case chat.RoleUser:
		if img := msg.Image(); img != "" {
			infoColor.Fprintf(r.out, "[image] %s\n", img)
		}
		if text := msg.Text(); text != "" {
			userColor.Fprintf(r.out, "you: %s\n", text)
		}
	case chat.RoleAssistant:
		aiColor.Fprintf(r.out, "aura: %s\n", msg.Text())
	}
}
