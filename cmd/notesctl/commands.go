package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/internal/session"
	"go-notes-workspace/internal/store"
	"go-notes-workspace/internal/upload"
)

var errUsage = errors.New("usage")

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		return c.cmdRegister(ctx, args)
	case "login":
		return c.cmdLogin(ctx, args)
	case "logout":
		return c.cmdLogout(ctx)
	case "help":
		printUsage()
		return nil
	case "view":
		return c.cmdView(args)
	case "sort":
		return c.cmdSort(args)
	}

	if !c.session.LoggedIn() {
		return errors.New("not signed in, run notesctl login first")
	}

	switch cmd {
	case "ls", "list":
		return c.cmdList(ctx, args)
	case "mkdir":
		return c.cmdMkdir(ctx, args)
	case "rmdir":
		return c.cmdRmdir(ctx, args)
	case "rm":
		return c.cmdRm(ctx, args)
	case "upload":
		return c.cmdUpload(ctx, args)
	case "shared":
		return c.cmdShared(ctx)
	case "share":
		return c.cmdShare(ctx, args)
	case "usage":
		return c.cmdUsage(ctx)
	case "tokens":
		return c.cmdTokens(ctx, args)
	case "consume":
		return c.cmdConsume(ctx, args)
	case "watch":
		return c.cmdWatch(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		return errUsage
	}
}

func (c *cli) saveSession() error {
	c.session.APIURL = c.cfg.APIURL
	c.session.CapturePreferences(c.store.Snapshot())
	return session.Save(c.sessionPath, c.session)
}

func (c *cli) cmdRegister(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	if _, err := c.client.Register(ctx, args[0], args[1]); err != nil {
		return err
	}
	return c.cmdLogin(ctx, args)
}

func (c *cli) cmdLogin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	password := ""
	if len(args) > 1 {
		password = args[1]
	} else {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	pair, err := c.client.Login(ctx, args[0], password)
	if err != nil {
		return err
	}
	c.session.SetAuth(pair)
	if err := c.saveSession(); err != nil {
		return err
	}
	fmt.Printf("Signed in as %s\n", pair.User.Username)
	return nil
}

func (c *cli) cmdLogout(ctx context.Context) error {
	if c.session.LoggedIn() {
		if err := c.client.Logout(ctx); err != nil {
			c.log.Warn("server logout failed", "error", err)
		}
	}
	c.session.ClearAuth()
	if err := session.Remove(c.sessionPath); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func (c *cli) cmdView(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	mode := store.ViewMode(args[0])
	if mode != store.ViewGrid && mode != store.ViewList {
		return errUsage
	}
	c.store.SetViewMode(mode)
	return c.saveSession()
}

func (c *cli) cmdSort(args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errUsage
	}
	order := store.Ascending
	if len(args) == 2 {
		order = store.SortOrder(args[1])
	}
	c.store.SetSort(store.SortField(args[0]), order)
	return c.saveSession()
}

func (c *cli) cmdList(ctx context.Context, args []string) error {
	folderID := ""
	if len(args) > 0 {
		folderID = args[0]
	}
	if err := c.store.LoadFolderContents(ctx, folderID); err != nil {
		return err
	}

	fmt.Println(formatBreadcrumbs(c.store.Breadcrumbs()))
	renderItems(os.Stdout, c.store.SortedItems(), c.store.Snapshot().ViewMode)
	return nil
}

func (c *cli) cmdMkdir(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errUsage
	}
	if len(args) == 2 {
		if err := c.store.LoadFolderContents(ctx, args[1]); err != nil {
			return err
		}
	}

	folder, err := c.store.CreateFolder(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Created folder %s (%s)\n", folder.Name, folder.ID)
	return nil
}

func (c *cli) cmdRmdir(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := c.store.DeleteFolder(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted folder %s\n", args[0])
	return nil
}

func (c *cli) cmdRm(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := c.store.DeleteDocument(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted document %s\n", args[0])
	return nil
}

func (c *cli) cmdUpload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	target := fs.String("to", "", "Target folder ID (default: root)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	files := make([]store.File, 0, fs.NArg())
	for _, path := range fs.Args() {
		f, err := store.LocalFile(path)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	events, cancel := c.pipeline.Subscribe()
	defer cancel()

	batch := c.pipeline.Drop(ctx, files, *target)
	printer := newProgressPrinter(os.Stdout)
	for {
		select {
		case ev := <-events:
			printer.update(ev.Task)
		case <-batch.Done():
			failed := 0
			for _, t := range batch.Wait() {
				printer.update(t)
				if t.Status == upload.StatusFailed {
					failed++
				}
				_ = c.pipeline.Acknowledge(t.ID)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(files))
			}
			return nil
		}
	}
}

func (c *cli) cmdShared(ctx context.Context) error {
	if err := c.store.LoadSharedDocuments(ctx); err != nil {
		return err
	}
	renderShared(os.Stdout, c.store.Snapshot().Shared)
	return nil
}

func (c *cli) cmdShare(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	perm := model.Permission(args[2])
	if !perm.Valid() {
		return errUsage
	}
	record, err := c.client.ShareDocument(ctx, args[0], args[1], perm)
	if err != nil {
		return err
	}
	fmt.Printf("Shared %s with %s (%s)\n", record.DocumentID, args[1], record.Permission)
	return nil
}

func (c *cli) cmdUsage(ctx context.Context) error {
	if err := c.store.LoadStorageUsage(ctx); err != nil {
		return err
	}
	u := c.store.Snapshot().Storage
	fmt.Printf("Storage: %s of %s (%.1f%%)\n", formatSize(u.UsedBytes), formatSize(u.TotalBytes), u.Percentage)
	return nil
}

func (c *cli) cmdTokens(ctx context.Context, args []string) error {
	days := c.cfg.UsageWindowDays
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return errUsage
		}
		days = n
	}

	if err := c.tokens.FetchBalance(ctx); err != nil {
		return err
	}
	if err := c.tokens.FetchUsage(ctx, days); err != nil {
		return err
	}
	renderTokens(os.Stdout, c.tokens.Snapshot())
	return nil
}

func (c *cli) cmdConsume(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errUsage
	}

	if err := c.tokens.FetchBalance(ctx); err != nil {
		return err
	}
	if err := c.tokens.Consume(ctx, amount, args[1]); err != nil {
		return err
	}
	st := c.tokens.Snapshot()
	fmt.Printf("Balance: %d\n", st.Balance)
	if st.IsLowBalance() {
		fmt.Println("Warning: token balance is low")
	}
	return nil
}

func (c *cli) cmdWatch(ctx context.Context) error {
	if err := c.store.LoadFolderContents(ctx, ""); err != nil {
		return err
	}

	notifications, err := c.client.Notifications(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Watching for notifications (Ctrl+C to stop)")

	for n := range notifications {
		fmt.Printf("[%s] %s: %s\n", n.CreatedAt.Local().Format("15:04:05"), n.Title, n.Body)
		if err := c.store.ApplyNotification(n); err != nil {
			c.log.Warn("ignoring notification", "type", n.Type, "error", err)
		}
	}
	return nil
}
