package mail

import (
	"context"
	"io"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"

	logx "smarttask/pkg/logx"
)

// DirFetcher reads messages dropped as files into a local directory (one
// RFC 822 message per file) and removes each file after a successful read.
// It stands in for a full IMAP transport, which lives outside this core:
// anything able to write a message file can feed the import job.
type DirFetcher struct {
	dir string
	log logx.Logger
}

func NewDirFetcher(dir string, log logx.Logger) *DirFetcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &DirFetcher{dir: dir, log: log}
}

func (f *DirFetcher) Fetch(ctx context.Context) ([]Message, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var out []Message
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		path := filepath.Join(f.dir, name)
		m, err := readMessageFile(path)
		if err != nil {
			// Leave unreadable files in place for inspection.
			f.log.Warn("skipping unreadable inbox file", logx.String("file", name), logx.Err(err))
			continue
		}
		out = append(out, m)
		if err := os.Remove(path); err != nil {
			f.log.Warn("could not remove consumed inbox file", logx.String("file", name), logx.Err(err))
		}
	}
	return out, nil
}

func readMessageFile(path string) (Message, error) {
	file, err := os.Open(path)
	if err != nil {
		return Message{}, err
	}
	defer file.Close()

	msg, err := mail.ReadMessage(file)
	if err != nil {
		return Message{}, err
	}
	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return Message{}, err
	}

	from := msg.Header.Get("From")
	if addr, err := mail.ParseAddress(from); err == nil {
		from = addr.Address
	}

	return Message{
		From:    from,
		Subject: msg.Header.Get("Subject"),
		Body:    string(body),
	}, nil
}
