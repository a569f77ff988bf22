package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cvbuilder/internal/ai"
	"cvbuilder/internal/bootstrap"
	"cvbuilder/internal/extract"
	"cvbuilder/internal/sanitize"
	"cvbuilder/internal/shared/config"
)

func main() {
	cfg := config.Load()

	resumePath := flag.String("resume", "", "Path to resume file (pdf, docx or txt)")
	jdPath := flag.String("jd", "", "Path to job description file (optional)")
	function := flag.String("function", "ats-score", "AI function to run")
	outPath := flag.String("out", "", "Path to write JSON output (optional)")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider (openai, gemini, placeholder)")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	list := flag.Bool("list", false, "List AI functions and exit")
	flag.Parse()

	if *list {
		for _, f := range ai.Functions() {
			fmt.Printf("%-20s %s\n", f.Name, f.Description)
		}
		return
	}
	if strings.TrimSpace(*resumePath) == "" {
		exitErr("resume path is required")
	}

	resumeBytes, err := os.ReadFile(*resumePath)
	if err != nil {
		exitErr(fmt.Sprintf("read resume: %v", err))
	}
	resumeText, err := extract.ExtractTextFromBytes(resumeBytes, "", filepath.Base(*resumePath))
	if err != nil {
		exitErr(fmt.Sprintf("extract resume text: %v", err))
	}
	resumeText, _ = sanitize.Clean(resumeText)

	jobDescription := ""
	if strings.TrimSpace(*jdPath) != "" {
		jdBytes, err := os.ReadFile(*jdPath)
		if err != nil {
			exitErr(fmt.Sprintf("read job description: %v", err))
		}
		jobDescription = string(jdBytes)
	}

	cfg.LLMProvider = *provider
	cfg.LLMModel = *model
	ctx := context.Background()
	completer, err := bootstrap.NewCompleter(ctx, cfg)
	if err != nil {
		exitErr(err.Error())
	}
	svc := ai.NewService(completer, nil, nil, nil, nil)
	svc.Timeout = cfg.LLMTimeout

	res, err := svc.Run(ctx, "prompttest", *function, ai.Input{
		ResumeText:     resumeText,
		Text:           resumeText,
		JobDescription: jobDescription,
	})
	if err != nil {
		exitErr(fmt.Sprintf("run %s: %v", *function, err))
	}
	if res.Fallback {
		fmt.Fprintln(os.Stderr, "warning: model output did not match the schema; showing fallback")
	}

	raw, err := json.Marshal(res)
	if err != nil {
		exitErr(fmt.Sprintf("encode result: %v", err))
	}
	pretty, err := prettyJSON(raw)
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}

	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
	if len(pretty) == 0 || pretty[len(pretty)-1] != '\n' {
		_, _ = os.Stdout.Write([]byte("\n"))
	}
}

func prettyJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
