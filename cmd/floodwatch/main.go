package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"

	"floodwatch/config"
	"floodwatch/internal/alerts"
	"floodwatch/internal/baseline"
	"floodwatch/internal/detector"
	"floodwatch/internal/input/redisstream"
	"floodwatch/internal/logger"
	"floodwatch/internal/metrics"
	"floodwatch/internal/output/alertjson"
	"floodwatch/internal/output/alertstream"
	"floodwatch/internal/output/alertwebhook"
	"floodwatch/internal/pipeline"
	"floodwatch/internal/producer"
	"floodwatch/internal/rules"
	"floodwatch/internal/sourcestate"
	"floodwatch/internal/store"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		if _, err := os.Stat(configArg); err == nil {
			return configArg
		}
		log.Printf("Warning: config file not found at %s, trying default locations", configArg)
	}

	if _, err := os.Stat("floodwatch.yml"); err == nil {
		return "floodwatch.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(exePath), "floodwatch.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func loadConfig(configArg string) *config.Config {
	path := findConfigFile(configArg)
	if path == "" {
		return &config.Config{}
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded from: %s", path)
	return cfg
}

func applyDefaults(cfg *config.Config) {
	fw := &cfg.Floodwatch

	if fw.Input.Redis.Addr == "" {
		fw.Input.Redis.Addr = "127.0.0.1:6379"
	}
	if fw.Input.Redis.Stream == "" {
		fw.Input.Redis.Stream = "network_traffic"
	}
	if fw.Input.Redis.BatchSize <= 0 {
		fw.Input.Redis.BatchSize = 10
	}
	if fw.Input.Redis.BlockTimeout <= 0 {
		fw.Input.Redis.BlockTimeout = time.Second
	}

	if fw.Output.Mode == "" {
		fw.Output.Mode = "redis"
	}
	if fw.Output.Stream == "" {
		fw.Output.Stream = "alerts"
	}
	if fw.Output.File.Path == "" {
		fw.Output.File.Path = "output/alerts.jsonl"
	}

	if fw.Producer.CSVPath == "" {
		fw.Producer.CSVPath = "dataset/network_traffic.csv"
	}
	if fw.Producer.Delay <= 0 {
		fw.Producer.Delay = 100 * time.Millisecond
	}

	if fw.Metrics.Listen == "" {
		fw.Metrics.Listen = ":9815"
	}

	if fw.Logging.Level == "" {
		fw.Logging.Level = "info"
		fw.Logging.Enabled = true
		fw.Logging.Console = true
	}
}

func detectionWindows(cfg []config.WindowConfig) []detector.AttackWindow {
	out := make([]detector.AttackWindow, 0, len(cfg))
	for _, w := range cfg {
		out = append(out, detector.AttackWindow{Start: w.Start, End: w.End, Label: w.Label})
	}
	return out
}

func signalContext(duration time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	if duration > 0 {
		dctx, dcancel := context.WithTimeout(ctx, duration)
		return dctx, func() { dcancel(); cancel() }
	}
	return ctx, cancel
}

func runDetect(args []string) {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	configArg := fs.String("config", "", "Config file path")
	redisAddr := fs.String("redis-addr", "", "Redis address override")
	streamName := fs.String("stream", "", "Input stream override")
	alertStream := fs.String("alert-stream", "", "Output alert stream override")
	batchSize := fs.Int64("batch", 0, "Read batch size override")
	blockTimeout := fs.Duration("block", 0, "Blocking read timeout override")
	duration := fs.Duration("duration", 0, "Optional run deadline (default: run until stopped)")
	fromStart := fs.Bool("from-start", false, "Ignore the cursor checkpoint and replay from the beginning")
	fs.Parse(args)

	cfg := loadConfig(*configArg)
	applyDefaults(cfg)
	fw := &cfg.Floodwatch

	if *redisAddr != "" {
		fw.Input.Redis.Addr = *redisAddr
	}
	if *streamName != "" {
		fw.Input.Redis.Stream = *streamName
	}
	if *alertStream != "" {
		fw.Output.Stream = *alertStream
	}
	if *batchSize > 0 {
		fw.Input.Redis.BatchSize = *batchSize
	}
	if *blockTimeout > 0 {
		fw.Input.Redis.BlockTimeout = *blockTimeout
	}
	if *fromStart {
		fw.Input.Redis.FromBeginning = true
	}

	if err := logger.Init(fw.Logging.Enabled, fw.Logging.Level, fw.Logging.File, fw.Logging.Console); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Infof("Floodwatch starting")
	logger.Infof("Redis: %s, input stream: %s", fw.Input.Redis.Addr, fw.Input.Redis.Stream)

	consumer, err := redisstream.NewConsumer(redisstream.Config{
		Addr:         fw.Input.Redis.Addr,
		Password:     fw.Input.Redis.Password,
		DB:           fw.Input.Redis.DB,
		Stream:       fw.Input.Redis.Stream,
		BatchSize:    fw.Input.Redis.BatchSize,
		BlockTimeout: fw.Input.Redis.BlockTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create stream consumer: %v", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = consumer.Ping(pingCtx)
	pingCancel()
	if err != nil {
		logger.Errorf("Redis connection failed: %v", err)
		log.Fatalf("Cannot proceed without a Redis connection: %v", err)
	}

	st := store.NewRedisStoreFromClient(consumer.Client())

	sources := sourcestate.NewManager(st, sourcestate.Config{
		CountTTL:     fw.State.CountTTL,
		PortsTTL:     fw.State.PortsTTL,
		FirstSeenTTL: fw.State.FirstSeenTTL,
		RecencyTTL:   fw.State.RecencyTTL,
	})

	tracker := baseline.NewTracker(st, baseline.Config{
		Window:     fw.Baseline.Window,
		MinSamples: fw.Baseline.MinSamples,
		MaxSamples: fw.Baseline.MaxSamples,
		PublishTTL: fw.Baseline.PublishTTL,
	})

	engine := detector.NewEngine(detector.Config{
		Thresholds: detector.Thresholds{
			HighRequestRate: fw.Detection.HighRequestRate,
			PortScan:        fw.Detection.PortScan,
			NewSourceRate:   fw.Detection.NewSourceRate,
			Sigma:           fw.Detection.Sigma,
		},
		Windows: detectionWindows(fw.Detection.Windows),
	})

	if fw.Rules.Enabled {
		if strings.TrimSpace(fw.Rules.Path) == "" {
			logger.Warnf("Rules enabled but rules.path is empty; custom rule layer disabled")
		} else {
			layer, stats, err := rules.NewSigmaLayer(fw.Rules.Path)
			if err != nil {
				logger.Errorf("Failed to load Sigma rules from %s: %v", fw.Rules.Path, err)
				log.Fatalf("Failed to load Sigma rules: %v", err)
			}
			engine.AddLayer(layer)
			logger.Infof("Sigma rules loaded: loaded=%d skipped_complex=%d skipped_invalid=%d files=%d",
				stats.Loaded, stats.SkippedComplex, stats.SkippedInvalid, stats.TotalFiles)
		}
	}

	var writer alerts.Writer
	switch fw.Output.Mode {
	case "redis":
		w, err := alertstream.NewWriter(consumer.Client(), fw.Output.Stream)
		if err != nil {
			log.Fatalf("Failed to create alert stream writer: %v", err)
		}
		writer = w
		logger.Infof("Alert output mode: redis (%s)", fw.Output.Stream)
	case "file":
		w, err := alertjson.NewWriter(fw.Output.File.Path)
		if err != nil {
			log.Fatalf("Failed to create alert file writer: %v", err)
		}
		writer = w
		logger.Infof("Alert output mode: file (%s)", fw.Output.File.Path)
	case "webhook":
		w, err := alertwebhook.NewWriter(alertwebhook.Config{
			URL:     fw.Output.Webhook.URL,
			Timeout: fw.Output.Webhook.Timeout,
			Headers: fw.Output.Webhook.Headers,
		})
		if err != nil {
			log.Fatalf("Failed to create alert webhook writer: %v", err)
		}
		writer = w
		logger.Infof("Alert output mode: webhook (%s)", fw.Output.Webhook.URL)
	default:
		log.Fatalf("Unknown alert output mode: %s", fw.Output.Mode)
	}

	if fw.Metrics.Enabled {
		go func() {
			logger.Infof("Metrics listening on %s", fw.Metrics.Listen)
			if err := metrics.ListenAndServe(fw.Metrics.Listen); err != nil {
				logger.Errorf("Metrics server stopped: %v", err)
			}
		}()
	}

	pipe := pipeline.New(consumer, sources, tracker, engine, alerts.NewEmitter(writer, st), st, pipeline.Config{
		Stream:        fw.Input.Redis.Stream,
		FromBeginning: fw.Input.Redis.FromBeginning,
	})

	ctx, cancel := signalContext(*duration)
	defer cancel()

	if err := pipe.Run(ctx); err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		logger.Errorf("Pipeline error: %v", err)
	}

	if err := writer.Close(); err != nil {
		logger.Errorf("Error closing alert writer: %v", err)
	}
	if err := pipe.Close(); err != nil {
		logger.Errorf("Error closing pipeline: %v", err)
	}

	printSummary(pipe.Summary())
	logger.Infof("Floodwatch stopped")
}

func printSummary(s pipeline.Summary) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("CONSUMER SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Records processed: %d\n", s.Records)
	fmt.Printf("Records skipped:   %d\n", s.Skipped)
	fmt.Printf("Alerts generated:  %d\n", s.Alerts)
	fmt.Printf("Total time:        %.2f seconds\n", s.Elapsed.Seconds())
	fmt.Printf("Processing rate:   %.2f records/second\n", s.Rate())
	fmt.Printf("Alert rate:        %.2f alerts/second\n", s.AlertRate())
	fmt.Println(strings.Repeat("=", 60))
}

func runProduce(args []string) int {
	fs := flag.NewFlagSet("produce", flag.ExitOnError)
	configArg := fs.String("config", "", "Config file path")
	redisAddr := fs.String("redis-addr", "", "Redis address override")
	streamName := fs.String("stream", "", "Input stream override")
	csvPath := fs.String("csv", "", "Dataset CSV path override")
	records := fs.Int("records", 0, "Maximum records to send (0 = config value)")
	delay := fs.Duration("delay", 0, "Delay between records override")
	fs.Parse(args)

	cfg := loadConfig(*configArg)
	applyDefaults(cfg)
	fw := &cfg.Floodwatch

	if *redisAddr != "" {
		fw.Input.Redis.Addr = *redisAddr
	}
	if *streamName != "" {
		fw.Input.Redis.Stream = *streamName
	}
	if *csvPath != "" {
		fw.Producer.CSVPath = *csvPath
	}
	if *records > 0 {
		fw.Producer.MaxRecords = *records
	}
	if *delay > 0 {
		fw.Producer.Delay = *delay
	}

	if err := logger.Init(fw.Logging.Enabled, fw.Logging.Level, fw.Logging.File, fw.Logging.Console); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fw.Input.Redis.Addr,
		Password: fw.Input.Redis.Password,
		DB:       fw.Input.Redis.DB,
	})
	defer client.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := client.Ping(pingCtx).Err()
	pingCancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot proceed without a Redis connection: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext(0)
	defer cancel()

	start := time.Now()
	sent, err := producer.New(client, fw.Input.Redis.Stream).Replay(ctx, fw.Producer.CSVPath, fw.Producer.MaxRecords, fw.Producer.Delay)
	elapsed := time.Since(start)
	if err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "Producer failed after %d records: %v\n", sent, err)
		return 1
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("PRODUCER SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Records sent: %d\n", sent)
	fmt.Printf("Total time:   %.2f seconds\n", elapsed.Seconds())
	if sent > 0 && elapsed > 0 {
		fmt.Printf("Rate:         %.2f records/second\n", float64(sent)/elapsed.Seconds())
	}
	fmt.Println(strings.Repeat("=", 60))
	return 0
}

func runTail(args []string) int {
	fs := flag.NewFlagSet("tail", flag.ExitOnError)
	configArg := fs.String("config", "", "Config file path")
	redisAddr := fs.String("redis-addr", "", "Redis address override")
	alertStream := fs.String("stream", "", "Alert stream override")
	interval := fs.Duration("interval", 5*time.Second, "Metrics print interval")
	fs.Parse(args)

	cfg := loadConfig(*configArg)
	applyDefaults(cfg)
	fw := &cfg.Floodwatch

	if *redisAddr != "" {
		fw.Input.Redis.Addr = *redisAddr
	}
	stream := fw.Output.Stream
	if *alertStream != "" {
		stream = *alertStream
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fw.Input.Redis.Addr,
		Password: fw.Input.Redis.Password,
		DB:       fw.Input.Redis.DB,
	})
	defer client.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := client.Ping(pingCtx).Err()
	pingCancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot proceed without a Redis connection: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext(0)
	defer cancel()

	cursor := "0"
	nextMetrics := time.Now()
	for ctx.Err() == nil {
		res, err := client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{stream, cursor},
			Count:   50,
			Block:   2 * time.Second,
		}).Result()
		if err != nil && err != redis.Nil {
			if ctx.Err() != nil {
				break
			}
			fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
			time.Sleep(time.Second)
			continue
		}
		for _, s := range res {
			for _, msg := range s.Messages {
				if raw, ok := msg.Values["alert"].(string); ok {
					fmt.Println(raw)
				}
				cursor = msg.ID
			}
		}

		if time.Now().After(nextMetrics) {
			printGlobalMetrics(ctx, client)
			nextMetrics = time.Now().Add(*interval)
		}
	}
	return 0
}

func printGlobalMetrics(ctx context.Context, client *redis.Client) {
	keys := []struct {
		key   string
		label string
	}{
		{pipeline.ProcessedKey, "processed"},
		{alerts.TotalKey, "alerts"},
		{baseline.MeanKey, "baseline_avg"},
		{baseline.StdDevKey, "baseline_std"},
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		val, err := client.Get(ctx, k.key).Result()
		if err == redis.Nil {
			val = "-"
		} else if err != nil {
			return
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k.label, val))
	}
	fmt.Printf("# %s\n", strings.Join(parts, " "))
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "detect":
			runDetect(os.Args[2:])
			return
		case "produce":
			os.Exit(runProduce(os.Args[2:]))
		case "tail":
			os.Exit(runTail(os.Args[2:]))
		default:
			args := os.Args[1:]
			if !strings.HasPrefix(args[0], "-") {
				args = append([]string{"-config", args[0]}, args[1:]...)
			}
			runDetect(args)
			return
		}
	}

	runDetect(nil)
}
