package cli

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorrc/avisos-backend/internal/client"
)

func newWatchCmd() *cobra.Command {
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "watch <announcement-id>",
		Short: "Follow an announcement's comments live",
		Long: "Loads the comments of an announcement and prints new ones as they arrive. " +
			"Lines typed on stdin are posted as comments. Lost connections are retried after a fixed delay.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAnnouncementID(args[0])
			if err != nil {
				return err
			}
			return runWatch(cmd, id, delay)
		},
	}

	cmd.Flags().DurationVar(&delay, "reconnect-delay", client.DefaultReconnectDelay, "wait before reconnecting")

	return cmd
}

func runWatch(cmd *cobra.Command, announcementID int64, delay time.Duration) error {
	api := newAPIClient()
	streamURL, err := api.StreamURL()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	var outMu sync.Mutex
	printf := func(format string, args ...any) {
		outMu.Lock()
		defer outMu.Unlock()
		fmt.Fprintf(out, format, args...)
	}

	m := client.NewManager(api, client.Options{
		StreamURL:      streamURL,
		ReconnectDelay: delay,
		Logger:         newLogger(),
		OnNotify: func(n client.Notification) {
			outMu.Lock()
			defer outMu.Unlock()
			fmt.Fprintf(out, "* %s\n", n.Message)
			printComment(out, n.Comment)
		},
	})
	defer m.Detach()

	m.OnStatus(func(s client.Status) {
		printf("[%s]\n", s)
	})

	if err := m.Attach(ctx, announcementID); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}

	comments := m.Comments()
	printf("Comments for announcement #%d (%d):\n", announcementID, len(comments))
	for _, c := range comments {
		outMu.Lock()
		printComment(out, c)
		outMu.Unlock()
	}

	go func() {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			created, err := m.SendComment(ctx, line)
			if err != nil {
				printf("error: %v\n", err)
				continue
			}
			if m.State() != client.StateConnected {
				outMu.Lock()
				fmt.Fprintln(out, "* Posted while offline")
				printComment(out, *created)
				outMu.Unlock()
			}
		}
	}()

	<-ctx.Done()
	return nil
}
