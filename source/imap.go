package source

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/emlkit/eml2md/model"
	"github.com/emlkit/eml2md/runner"
)

type IMAPOptions struct {
	Host               string
	Port               int
	Username           string
	Password           string
	UseTLS             bool
	InsecureSkipVerify bool
	Folder             string
	Limit              int
}

// IMAPFetcher downloads every message of one folder and emits each as a
// container job named <folder>-<uid>. Bodies are fetched with peek so the
// messages keep their unread flags.
type IMAPFetcher struct {
	opts   IMAPOptions
	runner *runner.Runner
	logger *slog.Logger
}

func NewIMAPFetcher(opts IMAPOptions, r *runner.Runner, logger *slog.Logger) (*IMAPFetcher, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("imap host is empty")
	}
	if opts.Port <= 0 {
		return nil, fmt.Errorf("imap port must be positive")
	}
	f := &IMAPFetcher{opts: opts, runner: r, logger: logger}
	r.AddStage("imap-source", f.run)
	return f, nil
}

func (f *IMAPFetcher) run(ctx context.Context) error {
	defer f.runner.CloseJobs()

	client, cleanup, err := f.dial(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	folder := f.folder()
	if _, err := client.Select(folder, nil).Wait(); err != nil {
		return fmt.Errorf("select %s: %w", folder, err)
	}

	searchData, err := client.UIDSearch(&imapv2.SearchCriteria{}, nil).Wait()
	if err != nil {
		return fmt.Errorf("search %s: %w", folder, err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		if f.logger != nil {
			f.logger.Warn("no messages in folder", "folder", folder)
		}
		return nil
	}
	if f.opts.Limit > 0 && len(uids) > f.opts.Limit {
		uids = uids[len(uids)-f.opts.Limit:]
	}

	bodySection := &imapv2.FetchItemBodySection{Peek: true}
	fetchOpts := &imapv2.FetchOptions{
		UID:         true,
		BodySection: []*imapv2.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(imapv2.UIDSetNum(uids...), fetchOpts)
	defer fetchCmd.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			if err := f.emit(ctx, model.Envelope{Err: fmt.Errorf("collect message: %w", err)}); err != nil {
				return err
			}
			continue
		}

		raw := buf.FindBodySection(bodySection)
		if len(raw) == 0 {
			continue
		}

		job := model.Job{
			Name: fmt.Sprintf("%s-%d", folder, buf.UID),
			Hash: HashContainer(raw),
			Raw:  raw,
		}
		if err := f.emit(ctx, model.Envelope{Job: job}); err != nil {
			return err
		}
	}

	if err := fetchCmd.Close(); err != nil {
		return fmt.Errorf("fetch close: %w", err)
	}
	return nil
}

func (f *IMAPFetcher) emit(ctx context.Context, env model.Envelope) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case f.runner.JobsWriter() <- env:
		return nil
	}
}

func (f *IMAPFetcher) dial(ctx context.Context) (*imapclient.Client, func(), error) {
	address := net.JoinHostPort(f.opts.Host, strconv.Itoa(f.opts.Port))
	options := &imapclient.Options{}

	if f.opts.UseTLS {
		options.TLSConfig = &tls.Config{
			ServerName:         f.opts.Host,
			InsecureSkipVerify: f.opts.InsecureSkipVerify,
		}
	}

	var (
		client *imapclient.Client
		err    error
	)

	if f.opts.UseTLS {
		client, err = imapclient.DialTLS(address, options)
	} else {
		client, err = imapclient.DialInsecure(address, options)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("dial imap %s: %w", address, err)
	}

	if err := client.Login(f.opts.Username, f.opts.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("imap login failed: %w", err)
	}

	if f.logger != nil {
		f.logger.Debug("imap connection established", "address", address, "user", f.opts.Username, "folder", f.folder(), "tls", f.opts.UseTLS)
	}

	stopClose := context.AfterFunc(ctx, func() {
		_ = client.Close()
	})

	cleanup := func() {
		stopClose()
		if ctx.Err() == nil {
			if err := client.Logout().Wait(); err != nil {
				if f.logger != nil {
					f.logger.Warn("imap logout failed", "err", err)
				}
			}
		}
		if err := client.Close(); err != nil && f.logger != nil {
			f.logger.Debug("imap connection closed", "err", err)
		}
	}

	return client, cleanup, nil
}

func (f *IMAPFetcher) folder() string {
	if f.opts.Folder == "" {
		return "INBOX"
	}
	return f.opts.Folder
}
