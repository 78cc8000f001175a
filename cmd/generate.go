package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/qnagen/internal/pipeline"
	"github.com/ziadkadry99/qnagen/internal/progress"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a question, answer and conversation for a product",
	Long: `Runs the generation pipeline for one request. The request is built from
flags, or read from a JSON file with --request (flags given explicitly
override fields of the file).`,
	RunE: runGenerate,
}

func init() {
	addGenerateFlags(generateCmd)
	rootCmd.AddCommand(generateCmd)
}

func addGenerateFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("request", "", "path to a JSON request file (- for stdin)")
	f.String("product", "", "product name")
	f.String("category", "", "product category")
	f.String("features", "", "key product features")
	f.String("persona", "", "customer persona")
	f.String("worry", "", "customer worry point")
	f.String("selling", "", "selling point to emphasize")
	f.String("feeling", "", "customer feeling tone (warm, neutral, excited, worried)")
	f.String("answer-tone", "", "advisor tone (expert, friendly, concise)")
	f.String("customer-style", "", "customer style in conversations (curious, skeptical, casual)")
	f.String("answer-length", "", "answer length (short, medium, long)")
	f.String("step", "", "stages to run (question, answer, conversation, all)")
	f.Bool("conversation", false, "also generate a conversation")
	f.Int("length", 0, "conversation length (6, 8, 10, 12)")
	f.String("image", "", "path to a product image")
	f.Bool("json", false, "print the full result as JSON")
	f.Bool("no-progress", false, "disable the progress display")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	noProgress, _ := cmd.Flags().GetBool("no-progress")
	var reporter progress.Reporter
	if !noProgress {
		reporter = progress.NewReporter()
		a.orchestrator.SetProgressFunc(progress.Func(reporter))
	}

	result, err := a.orchestrator.Run(ctx, req)
	if reporter != nil {
		reporter.Finish()
	}
	if err != nil {
		return fmt.Errorf("%s", pipeline.UserMessage(err))
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(os.Stdout, result)
	return nil
}

// requestFromFlags builds the request from --request and the explicit flags.
func requestFromFlags(cmd *cobra.Command) (pipeline.Request, error) {
	var req pipeline.Request
	f := cmd.Flags()

	if path, _ := f.GetString("request"); path != "" {
		var data []byte
		var err error
		if path == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return req, fmt.Errorf("reading request: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("parsing request %s: %w", path, err)
		}
	}

	strFlags := map[string]*string{
		"product":  &req.Product.Name,
		"category": &req.Product.Category,
		"features": &req.Product.Features,
		"persona":  &req.Persona,
		"worry":    &req.WorryPoint,
		"selling":  &req.SellingPoint,
	}
	for name, dst := range strFlags {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	if f.Changed("feeling") {
		v, _ := f.GetString("feeling")
		req.Tones.Feeling = pipeline.FeelingTone(v)
	}
	if f.Changed("answer-tone") {
		v, _ := f.GetString("answer-tone")
		req.Tones.Answer = pipeline.AnswerTone(v)
	}
	if f.Changed("customer-style") {
		v, _ := f.GetString("customer-style")
		req.Tones.CustomerStyle = pipeline.CustomerStyle(v)
	}
	if f.Changed("answer-length") {
		v, _ := f.GetString("answer-length")
		req.AnswerLength = pipeline.AnswerLength(v)
	}
	if f.Changed("step") {
		v, _ := f.GetString("step")
		req.Step = pipeline.Step(v)
	}
	if f.Changed("conversation") {
		req.ConversationMode, _ = f.GetBool("conversation")
	}
	if f.Changed("length") {
		req.ConversationLength, _ = f.GetInt("length")
	}

	if path, _ := f.GetString("image"); path != "" {
		img, err := loadImage(path)
		if err != nil {
			return req, err
		}
		req.Image = img
	}
	return req, nil
}

// loadImage reads an image file and sniffs its MIME type.
func loadImage(path string) (*pipeline.ImageInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%s does not look like an image (detected %s)", path, mime)
	}
	return &pipeline.ImageInput{MIMEType: mime, Data: data}, nil
}

// printResult writes a human-readable rendering of a result.
func printResult(w io.Writer, res *pipeline.Result) {
	if res.Question != nil {
		fmt.Fprintf(w, "# %s\n\n%s\n\n", res.Question.Title, res.Question.Content)
	}
	if res.Answer != nil {
		fmt.Fprintf(w, "## Answer\n\n%s\n\n", res.Answer.Content)
	}
	if len(res.Conversation) > 0 {
		fmt.Fprintln(w, "## Conversation")
		for _, m := range res.Conversation {
			label := string(m.Role)
			if m.Interlude {
				label += " (interlude)"
			}
			fmt.Fprintf(w, "\n[%d] %s\n%s\n", m.Sequence, label, m.Content)
		}
		fmt.Fprintln(w)
	}

	u := res.Usage
	fmt.Fprintf(w, "---\nrun %s: %d calls, %d tokens (%d prompt / %d completion)",
		res.RunID, len(u.Calls), u.TotalTokens, u.PromptTokens, u.CompletionTokens)
	if u.CostEstimate.TotalCost != nil {
		fmt.Fprintf(w, ", ~%.4f %s", *u.CostEstimate.TotalCost, u.CostEstimate.Currency)
	}
	fmt.Fprintln(w)
}
