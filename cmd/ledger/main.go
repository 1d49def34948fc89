// Command ledger prints the entries of a Pebble result ledger as JSON lines.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/optiply/target-vendit/internal/infrastructure/ledger"
)

func main() {
	var (
		dir        string
		streamName string
		failedOnly bool
	)
	flag.StringVar(&dir, "dir", "", "Pebble ledger directory")
	flag.StringVar(&streamName, "stream", "", "Only print entries of this stream")
	flag.BoolVar(&failedOnly, "failed", false, "Only print failed submissions")
	flag.Parse()

	if dir == "" {
		fmt.Fprintln(os.Stderr, "ledger: --dir is required")
		os.Exit(2)
	}

	store, err := ledger.NewPebbleStore(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ledger:", err)
		os.Exit(1)
	}
	defer store.Close()

	n, err := dump(store, os.Stdout, filter{stream: streamName, failedOnly: failedOnly})
	if err != nil {
		fmt.Fprintln(os.Stderr, "ledger:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%d entries\n", n)
}

type filter struct {
	stream     string
	failedOnly bool
}

func (f filter) match(e ledger.Entry) bool {
	if f.stream != "" && e.Stream != f.stream {
		return false
	}
	return !f.failedOnly || !e.Success
}

type ranger interface {
	Range(fn func(key string, e ledger.Entry) error) error
}

func dump(store ranger, w io.Writer, f filter) (int, error) {
	enc := json.NewEncoder(w)
	n := 0
	err := store.Range(func(_ string, e ledger.Entry) error {
		if !f.match(e) {
			return nil
		}
		n++
		return enc.Encode(&e)
	})
	return n, err
}
