// jobtrail-scan classifies a single email from a file or stdin and
// prints the verdict. Useful for tuning rules and prompts without a
// mailbox connection.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/jobtrail/jobtrail/internal/ai"
	"github.com/jobtrail/jobtrail/internal/cache"
	"github.com/jobtrail/jobtrail/internal/config"
	"github.com/jobtrail/jobtrail/internal/core"
	"github.com/jobtrail/jobtrail/internal/di"
	"github.com/jobtrail/jobtrail/internal/engine"
	"github.com/jobtrail/jobtrail/internal/logging"
	"github.com/jobtrail/jobtrail/internal/mailtext"
	"github.com/jobtrail/jobtrail/internal/rules"
	"go.uber.org/zap"
)

var (
	// LLM provider flags
	providers   = flag.String("providers", "", "Comma-separated provider priority order (openai,gemini,bedrock)")
	maxTokens   = flag.Int("max-tokens", 500, "Maximum tokens for LLM response")
	maxBodySize = flag.Int("max-body-size", 4096, "Maximum email body size to send to LLM")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4o-mini", "OpenAI model name")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-1.5-flash", "Gemini model name")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Rule flags
	userAddress = flag.String("user-address", "", "The user's own address, for the outbound-application heuristic")

	// Input flags
	inputFile = flag.String("file", "", "Input email file (use stdin if not specified)")
	verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog   = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := createConfigFromFlags()

	email, err := readEmail(*inputFile)
	if err != nil {
		logger.Fatal("Failed to read email", zap.Error(err))
	}

	eng := buildEngine(cfg, logger)

	result, err := eng.Classify(context.Background(), email)
	if err != nil {
		logger.Fatal("Classification failed", zap.Error(err))
	}

	if result == nil {
		fmt.Println("no classification")
		return
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal("Failed to encode result", zap.Error(err))
	}
	fmt.Println(string(out))
}

// createConfigFromFlags builds a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	if *providers != "" {
		v.Set("llm.providers", strings.Split(*providers, ","))
	} else {
		// Only chain providers the flags actually configured
		var chain []string
		if *openaiAPIKey != "" {
			chain = append(chain, "openai")
		}
		if *geminiAPIKey != "" {
			chain = append(chain, "gemini")
		}
		v.Set("llm.providers", chain)
	}

	v.Set("llm.max_tokens", *maxTokens)
	v.Set("llm.max_body_size", *maxBodySize)
	v.Set("openai.api_key", *openaiAPIKey)
	v.Set("openai.model_name", *openaiModelName)
	v.Set("gemini.api_key", *geminiAPIKey)
	v.Set("gemini.model_name", *geminiModelName)
	v.Set("bedrock.region", *bedrockRegion)
	v.Set("bedrock.model_id", *bedrockModelID)
	v.Set("rules.user_address", *userAddress)

	return config.NewFromViper(v)
}

// buildEngine assembles a one-shot classification pipeline backed by
// in-memory caches.
func buildEngine(cfg *config.Config, logger *zap.Logger) *engine.Engine {
	llmCfg := cfg.GetLLM()
	chain := di.BuildProviderChain(cfg, logger)

	aiClassifier := ai.NewClassifier(
		chain,
		cache.NewMemoryCache(),
		llmCfg.MaxTokens,
		llmCfg.MaxBodySize,
		time.Hour,
		time.Hour,
		logger,
	)

	ruleClassifier := rules.NewClassifier(
		cfg.GetString("rules.user_address"),
		cfg.GetStringSlice("rules.personal_denylist"),
		logger,
	)

	return engine.New(ruleClassifier, aiClassifier, cache.NewMemoryCache(), time.Hour, time.Hour, logger)
}

// readEmail parses an RFC 5322 message from a file or stdin into the
// normalized form fed to classification.
func readEmail(path string) (*core.NormalizedEmail, error) {
	var reader io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		reader = f
	}

	msg, err := mail.ReadMessage(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email: %w", err)
	}

	body, err := mailtext.ExtractText(msg)
	if err != nil {
		body = ""
	}

	return &core.NormalizedEmail{
		ID:       msg.Header.Get("Message-Id"),
		Subject:  msg.Header.Get("Subject"),
		From:     msg.Header.Get("From"),
		BodyText: mailtext.Normalize(body, *maxBodySize),
	}, nil
}
