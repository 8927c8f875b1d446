package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var audiences []string

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Submit and follow deck generation jobs",
}

var submitCmd = &cobra.Command{
	Use:   "submit [prompt]",
	Short: "Submit a new deck generation job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitJob(args[0], audiences)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [job-id]",
	Short: "Watch slide changes of a job in real time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchJob(cmd.Context(), args[0])
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events [job-id]",
	Short: "Print the raw event stream of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return streamEvents(cmd.Context(), args[0])
	},
}

var pushCmd = &cobra.Command{
	Use:   "push [job-id] [file|-]",
	Short: "Push a payload onto a job's event stream",
	Long: `Push the contents of a file (or stdin with "-") onto a job's event stream.
JSON documents are sent as they are, anything else as a JSON string.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return pushPayload(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(jobCmd)
	jobCmd.AddCommand(submitCmd, watchCmd, eventsCmd, pushCmd)
	submitCmd.Flags().StringSliceVarP(&audiences, "audience", "a", nil, "target audience (repeatable)")
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt)
}

func submitJob(prompt string, audiences []string) error {
	payload := map[string]interface{}{"prompt": prompt, "audiences": audiences}
	var result struct {
		JobID string `json:"jobId"`
	}
	if err := postJSON("/api/jobs", nil, payload, &result, http.StatusOK); err != nil {
		return err
	}
	success("Job submitted: %s", result.JobID)
	hint("To watch the slides arrive, run: slidecraft-cli job watch %s", result.JobID)
	return nil
}

type change struct {
	PresentationID string    `json:"presentationId"`
	Kind           string    `json:"kind"`
	SlideIDs       []string  `json:"slideIds"`
	Skipped        []string  `json:"skipped"`
	At             time.Time `json:"at"`
}

func watchJob(ctx context.Context, jobID string) error {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	target, err := wsEndpoint("/ws/presentations/" + jobID)
	if err != nil {
		return err
	}
	hint("Connecting to %s", target)
	c, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer c.Close()
	go func() {
		<-ctx.Done()
		c.Close()
	}()

	success("WebSocket connected. Waiting for slides...")
	for {
		var ch change
		if err := c.ReadJSON(&ch); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		printChange(ch)
	}
}

func printChange(ch change) {
	kind := output.String(fmt.Sprintf("%-16s", ch.Kind)).Bold()
	switch ch.Kind {
	case "slides_replaced":
		kind = kind.Foreground(output.Color("4"))
	case "slide_updated":
		kind = kind.Foreground(output.Color("2"))
	default:
		kind = kind.Foreground(output.Color("3"))
	}
	line := fmt.Sprintf("%s %s %s", output.String(ch.At.Local().Format("15:04:05")).Faint(), kind, strings.Join(ch.SlideIDs, ", "))
	if len(ch.Skipped) > 0 {
		line += output.String(" skipped: " + strings.Join(ch.Skipped, ", ")).Foreground(output.Color("1")).String()
	}
	fmt.Println(line)
}

func streamEvents(ctx context.Context, jobID string) error {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	target, err := endpoint("/api/events/"+jobID, nil)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			fmt.Println(data)
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func pushPayload(jobID, source string) error {
	var (
		raw []byte
		err error
	)
	if source == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(source)
	}
	if err != nil {
		return err
	}

	payload := json.RawMessage(raw)
	if !json.Valid(raw) {
		quoted, _ := json.Marshal(string(raw))
		payload = quoted
	}
	body := map[string]interface{}{"jobId": jobID, "payload": payload}
	if err := postJSON("/api/pushDummy", nil, body, nil, http.StatusOK); err != nil {
		return err
	}
	success("Pushed %d bytes to %s", len(raw), jobID)
	return nil
}
