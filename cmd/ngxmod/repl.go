package main

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/ngxmod/host"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Send requests to the loaded configuration interactively",
	Long: `Load the configuration and issue requests against it without opening a
socket. Each request runs through the same phases as a served one.

Commands:
  GET /path?args          Send a request (any method: HEAD, POST ...)
  POST /path body text    Send a request with a body
  header Name value       Add a header to every following request
  header -Name            Remove a header
  host name               Set the Host header
  reload                  Load the configuration file again
  exit, quit              Leave (or press Ctrl+D)

Features:
  - Command history (up/down arrows)
  - History search (Ctrl+R)`,
	Args: cobra.NoArgs,
	RunE: runRepl,
}

func init() {
	replCmd.Flags().String("history", "", "History file path (default: ~/.ngxmod_history)")
	rootCmd.AddCommand(replCmd)
}

type replState struct {
	cmd     *cobra.Command
	h       *host.Host
	cfg     *host.Config
	host    string
	headers http.Header
	out     io.Writer
}

func runRepl(cmd *cobra.Command, args []string) error {
	historyFile, _ := cmd.Flags().GetString("history")
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".ngxmod_history")
	}

	h, err := newHost()
	if err != nil {
		return err
	}
	cfg, path, err := loadConfig(cmd, h)
	if err != nil {
		return err
	}
	st := &replState{cmd: cmd, h: h, cfg: cfg, host: "localhost", headers: http.Header{}, out: cmd.OutOrStdout()}
	defer func() { st.cfg.Close() }()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdout:            cmd.OutOrStdout(),
		Stderr:            cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(cmd.ErrOrStderr(), "ngxmod repl on %s (type 'exit' to quit, Ctrl+D to exit)\n", path)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if err := st.exec(line); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
}

// exec runs one repl command.
func (st *replState) exec(line string) error {
	word, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch word {
	case "header":
		if name, ok := strings.CutPrefix(rest, "-"); ok {
			st.headers.Del(name)
			return nil
		}
		name, value, ok := strings.Cut(rest, " ")
		if !ok {
			return fmt.Errorf("usage: header Name value")
		}
		st.headers.Add(strings.TrimSuffix(name, ":"), strings.TrimSpace(value))
		return nil
	case "host":
		if rest == "" {
			return fmt.Errorf("usage: host name")
		}
		st.host = rest
		return nil
	case "reload":
		cfg, path, err := loadConfig(st.cmd, st.h)
		if err != nil {
			return err
		}
		st.cfg.Close()
		st.cfg = cfg
		fmt.Fprintf(st.out, "reloaded %s\n", path)
		return nil
	}

	method := strings.ToUpper(word)
	target, body, _ := strings.Cut(rest, " ")
	if !strings.HasPrefix(target, "/") {
		return fmt.Errorf("unknown command %q", word)
	}
	return st.request(method, target, body)
}

func (st *replState) request(method, target, body string) error {
	req, err := http.NewRequest(method, "http://"+st.host+target, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.RemoteAddr = "127.0.0.1:0"
	req.RequestURI = target
	for name, values := range st.headers {
		req.Header[name] = append([]string(nil), values...)
	}
	rec := httptest.NewRecorder()
	st.cfg.ServeHTTP(rec, req)
	writeResponse(st.out, rec)
	return nil
}

func writeResponse(w io.Writer, rec *httptest.ResponseRecorder) {
	fmt.Fprintf(w, "%d %s\n", rec.Code, http.StatusText(rec.Code))
	names := make([]string, 0, len(rec.Header()))
	for name := range rec.Header() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range rec.Header()[name] {
			fmt.Fprintf(w, "%s: %s\n", name, v)
		}
	}
	if rec.Body.Len() > 0 {
		fmt.Fprintln(w)
		body := rec.Body.String()
		fmt.Fprint(w, body)
		if !strings.HasSuffix(body, "\n") {
			fmt.Fprintln(w)
		}
	}
}
