package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/andydunstall/gossipchat"
	"github.com/andydunstall/gossipchat/internal/floodsub"
	"github.com/google/uuid"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	bindAddr string
	seeds    []string
	topic    string
	username string
	colored  bool
)

func init() {
	chatCmd.Flags().StringVar(&bindAddr, "bind", "0.0.0.0:0", "address to bind to, with port 0 picking a free port")
	chatCmd.Flags().StringSliceVar(&seeds, "join", nil, "addresses of existing peers to join")
	chatCmd.Flags().StringVar(&topic, "topic", gossipchat.DefaultTopic, "topic the chat is exchanged on")
	chatCmd.Flags().StringVar(&username, "username", "", "name shown to other peers, prompted for if not set")
	chatCmd.Flags().BoolVar(&colored, "color", true, "colour peer names")

	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Join the chat",
	Run: func(cmd *cobra.Command, args []string) {
		logger, err := newLogger()
		if err != nil {
			log.Fatalf("failed to create logger: %v", err)
		}
		defer logger.Sync()

		stdin := bufio.NewReader(os.Stdin)
		if username == "" {
			username, err = promptUsername(stdin, os.Stdout)
			if err != nil {
				logger.Fatal("failed to read username", zap.Error(err))
			}
		}

		if err := runChat(stdin, logger); err != nil {
			logger.Fatal("chat failed", zap.Error(err))
		}
	},
}

func runChat(stdin *bufio.Reader, logger *zap.Logger) error {
	transport, err := floodsub.NewMemberlistTransport(uuid.New().String(), bindAddr, logger)
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}
	pubsub := floodsub.NewFloodsub(transport, logger)

	logger.Info("listening", zap.String("addr", transport.BindAddr()))
	if len(seeds) > 0 {
		n, err := transport.Join(seeds)
		if err != nil {
			// The node can still be joined by others.
			logger.Warn("failed to join seeds", zap.Strings("seeds", seeds), zap.Error(err))
		}
		logger.Info("joined", zap.Int("peers", n))
	}

	node, err := gossipchat.Create(
		username,
		pubsub,
		gossipchat.WithTopic(topic),
		gossipchat.WithColor(colored),
		gossipchat.WithLogger(logger),
	)
	if err != nil {
		pubsub.Shutdown()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var errs error
	if err := node.Run(ctx, readLines(stdin)); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := pubsub.Shutdown(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs
}

// readLines returns a channel receiving each line read from r. The channel is
// closed when r is exhausted.
func readLines(r *bufio.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func promptUsername(r *bufio.Reader, w io.Writer) (string, error) {
	for {
		fmt.Fprint(w, "Username: ")
		line, err := r.ReadString('\n')
		name := strings.TrimSpace(line)
		if name != "" {
			return name, nil
		}
		if err != nil {
			return "", err
		}
	}
}
