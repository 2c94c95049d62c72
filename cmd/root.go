package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"sync"
	"syscall"

	"github.com/YuCat-OVO/DApi/checker"
	"github.com/YuCat-OVO/DApi/common"
	"github.com/YuCat-OVO/DApi/prober"
	"github.com/YuCat-OVO/DApi/reporter"
	"github.com/YuCat-OVO/DApi/resolver"
	"github.com/YuCat-OVO/DApi/source"
	sreCommon "github.com/devopsext/sre/common"
	sreProvider "github.com/devopsext/sre/provider"
	"github.com/devopsext/utils"
	"github.com/spf13/cobra"
)

var version = "unknown"
var APPNAME = "DAPI"

var logs = sreCommon.NewLogs()
var metrics = sreCommon.NewMetrics()
var stdout *sreProvider.Stdout
var main sync.WaitGroup

const defaultHeaders = `{"Content-Type":"application/json","Accept":"*/*","Accept-Language":"en-US,en;q=0.9",` +
	`"User-Agent":"DeepL-iOS/2.9.1 iOS 16.3.0 (iPhone13,2)","x-app-os-name":"iOS","x-app-os-version":"16.3.0",` +
	`"x-app-device":"iPhone13,2","x-app-build":"510265","x-app-version":"2.9.1"}`

const defaultPayload = `{"text":"Hello, world!","source_lang":"EN","target_lang":"ZH"}`

type RootOptions struct {
	Logs          []string
	Metrics       []string
	RunOnce       bool
	SchedulerWait bool
}

var rootOptions = RootOptions{
	Logs:          strings.Split(envGet("LOGS", "stdout").(string), ","),
	Metrics:       strings.Split(envGet("METRICS", "prometheus").(string), ","),
	RunOnce:       envGet("RUN_ONCE", true).(bool),
	SchedulerWait: envGet("SCHEDULER_WAIT", true).(bool),
}

var stdoutOptions = sreProvider.StdoutOptions{
	Format:          envGet("STDOUT_FORMAT", "text").(string),
	Level:           envGet("STDOUT_LEVEL", "info").(string),
	Template:        envGet("STDOUT_TEMPLATE", "{{.file}} {{.msg}}").(string),
	TimestampFormat: envGet("STDOUT_TIMESTAMP_FORMAT", time.RFC3339Nano).(string),
	TextColors:      envGet("STDOUT_TEXT_COLORS", true).(bool),
}

var prometheusMetricsOptions = sreProvider.PrometheusOptions{
	URL:    envGet("PROMETHEUS_METRICS_URL", "/metrics").(string),
	Listen: envGet("PROMETHEUS_METRICS_LISTEN", ":8080").(string),
	Prefix: envGet("PROMETHEUS_METRICS_PREFIX", "dapi").(string),
}

var endpointRules = common.EndpointRules{
	DefaultPort: envGet("ENDPOINT_DEFAULT_PORT", 1188).(int),
	BasePaths:   strings.Split(envGet("ENDPOINT_BASE_PATHS", "v1").(string), ","),
	TokenPaths:  strings.Split(envGet("ENDPOINT_TOKEN_PATHS", "").(string), ","),
	Suffix:      envGet("ENDPOINT_SUFFIX", "/translate").(string),
}

var sourceFile = source.FileOptions{
	Paths: strings.Split(envGet("SOURCE_FILE_PATHS", "urls.txt").(string), ","),
}

var sourceConfig = source.ConfigOptions{
	Path: envGet("SOURCE_CONFIG_PATH", "").(string),
}

var resolverCert = resolver.CertOptions{
	Timeout:  envGet("RESOLVER_CERT_TIMEOUT", 60).(int),
	CacheTTL: envGet("RESOLVER_CERT_CACHE_TTL", "1h").(string),
}

var resolverAugmentEnabled = envGet("RESOLVER_AUGMENT_ENABLED", true).(bool)

var resolverAugment = resolver.AugmentOptions{
	Workers:      envGet("RESOLVER_AUGMENT_WORKERS", 128).(int),
	ShowProgress: envGet("RESOLVER_AUGMENT_PROGRESS", false).(bool),
}

type ProberHttpOptions struct {
	Method       string
	Headers      string
	Payload      string
	MaxLatency   int
	IncludeWords string
	FailRegex    string
}

var proberHttp = ProberHttpOptions{
	Method:       envGet("PROBER_HTTP_METHOD", "POST").(string),
	Headers:      envStringExpand("PROBER_HTTP_HEADERS", defaultHeaders),
	Payload:      envStringExpand("PROBER_HTTP_PAYLOAD", defaultPayload),
	MaxLatency:   envGet("PROBER_HTTP_MAX_LATENCY", 60).(int),
	IncludeWords: envGet("PROBER_HTTP_INCLUDE_WORDS", "你好,世界").(string),
	FailRegex:    envGet("PROBER_HTTP_FAIL_REGEX", `[\[\]{}()0-9]]`).(string),
}

var proberRandomEnabled = envGet("PROBER_RANDOM_ENABLED", false).(bool)

var proberRandom = prober.RandomOptions{
	MaxLatency: envGet("PROBER_RANDOM_MAX_LATENCY", 1.0).(float64),
	Delay:      envGet("PROBER_RANDOM_DELAY", 0).(int),
}

var reporterConsole = reporter.ConsoleOptions{
	Enabled: envGet("REPORTER_CONSOLE_ENABLED", true).(bool),
}

var reporterJson = reporter.JsonOptions{
	Path: envGet("REPORTER_JSON_PATH", "results.json").(string),
}

var reporterTemplate = reporter.TemplateOptions{
	Content: envFileContentExpand("REPORTER_TEMPLATE_CONTENT", ""),
	Output:  envGet("REPORTER_TEMPLATE_OUTPUT", "").(string),
}

var reporterLoggerEnabled = envGet("REPORTER_LOGGER_ENABLED", false).(bool)

var reporterLogger = reporter.LoggerOptions{}

var checkerAvailability = checker.AvailabilityOptions{
	Schedule:     envGet("CHECKER_AVAILABILITY_SCHEDULE", "").(string),
	Workers:      envGet("CHECKER_AVAILABILITY_WORKERS", 64).(int),
	ShowProgress: envGet("CHECKER_AVAILABILITY_PROGRESS", true).(bool),
	DumpPath:     envGet("CHECKER_AVAILABILITY_DUMP_PATH", "").(string),
}

func getOnlyEnv(key string) string {
	value, ok := os.LookupEnv(key)
	if ok {
		return value
	}
	return fmt.Sprintf("$%s", key)
}

func envGet(s string, def interface{}) interface{} {
	return utils.EnvGet(fmt.Sprintf("%s_%s", APPNAME, s), def)
}

func envStringExpand(s string, def string) string {
	snew := envGet(s, def).(string)
	return os.Expand(snew, getOnlyEnv)
}

func envFileContentExpand(s string, def string) string {
	snew := envGet(s, def).(string)
	bytes, err := utils.Content(snew)
	if err != nil {
		return def
	}
	return os.Expand(string(bytes), getOnlyEnv)
}

func splitNonEmpty(s string) []string {

	r := []string{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if utils.IsEmpty(p) {
			continue
		}
		r = append(r, p)
	}
	return r
}

func getHttpProber(obs *common.Observability) *prober.Http {

	logger := obs.Logs()

	headers := map[string]string{}
	if !utils.IsEmpty(proberHttp.Headers) {
		err := json.Unmarshal([]byte(proberHttp.Headers), &headers)
		if err != nil {
			logger.Error("Boot cannot parse prober headers: %s", err)
			return nil
		}
	}

	rules, err := common.NewValidationRules(splitNonEmpty(proberHttp.IncludeWords), proberHttp.FailRegex)
	if err != nil {
		logger.Error("Boot cannot build validation rules: %s", err)
		return nil
	}

	opts := prober.HttpOptions{
		Method:     proberHttp.Method,
		Headers:    headers,
		Payload:    []byte(proberHttp.Payload),
		MaxLatency: proberHttp.MaxLatency,
	}
	return prober.NewHttp(&opts, rules, obs)
}

func interceptSyscall() {

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-c
		logs.Info("Exiting...")
		os.Exit(1)
	}()
}

func Execute() {

	rootCmd := &cobra.Command{
		Use:   "dapi",
		Short: "DApi",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {

			stdoutOptions.Version = version
			stdout = sreProvider.NewStdout(stdoutOptions)
			if utils.Contains(rootOptions.Logs, "stdout") && stdout != nil {
				stdout.SetCallerOffset(2)
				logs.Register(stdout)
			}

			logs.Info("Booting...")

			// Metrics
			prometheusMetricsOptions.Version = version
			prometheus := sreProvider.NewPrometheusMeter(prometheusMetricsOptions, logs, stdout)
			if utils.Contains(rootOptions.Metrics, "prometheus") && prometheus != nil {
				prometheus.StartInWaitGroup(&main)
				metrics.Register(prometheus)
			}
		},
		Run: func(cmd *cobra.Command, args []string) {

			obs := common.NewObservability(logs, metrics)

			sourceFile.Rules = &endpointRules
			sourceConfig.Rules = &endpointRules
			checkerAvailability.Rules = &endpointRules

			sources := common.NewSources(obs)
			sources.Add(source.NewFile(&sourceFile, obs))
			sources.Add(source.NewConfig(&sourceConfig, obs))

			var augmenter common.Augmenter
			if resolverAugmentEnabled {
				cert := resolver.NewCert(&resolverCert, obs)
				if aug := resolver.NewAugment(&resolverAugment, cert, obs); aug != nil {
					augmenter = aug
				}
			}

			var prb common.Prober
			if proberRandomEnabled {
				prb = prober.NewRandom(&proberRandom, obs)
			} else if hp := getHttpProber(obs); hp != nil {
				prb = hp
			}

			reporters := common.NewReporters(obs)
			reporters.Add(reporter.NewConsole(reporterConsole, obs))
			reporters.Add(reporter.NewJson(reporterJson, obs))
			reporters.Add(reporter.NewTemplate(reporterTemplate, obs))
			if reporterLoggerEnabled {
				reporters.Add(reporter.NewLogger(reporterLogger, obs))
			}

			checkers := common.NewCheckers(obs)
			checkers.Add(checker.NewAvailability(&checkerAvailability, obs, sources, augmenter, prb, reporters))

			checkers.Start(rootOptions.RunOnce, rootOptions.SchedulerWait)

			// start wait if there are some jobs
			if checkers.Scheduled() {
				main.Wait()
			}
		},
	}

	flags := rootCmd.PersistentFlags()

	flags.StringSliceVar(&rootOptions.Logs, "logs", rootOptions.Logs, "Log providers: stdout")
	flags.StringSliceVar(&rootOptions.Metrics, "metrics", rootOptions.Metrics, "Metric providers: prometheus")
	flags.BoolVar(&rootOptions.RunOnce, "run-once", rootOptions.RunOnce, "Run once")
	flags.BoolVar(&rootOptions.SchedulerWait, "scheduler-wait", rootOptions.SchedulerWait, "Scheduler wait until first try")

	flags.StringVar(&stdoutOptions.Format, "stdout-format", stdoutOptions.Format, "Stdout format: json, text, template")
	flags.StringVar(&stdoutOptions.Level, "stdout-level", stdoutOptions.Level, "Stdout level: info, warn, error, debug, panic")
	flags.StringVar(&stdoutOptions.Template, "stdout-template", stdoutOptions.Template, "Stdout template")
	flags.StringVar(&stdoutOptions.TimestampFormat, "stdout-timestamp-format", stdoutOptions.TimestampFormat, "Stdout timestamp format")
	flags.BoolVar(&stdoutOptions.TextColors, "stdout-text-colors", stdoutOptions.TextColors, "Stdout text colors")
	flags.BoolVar(&stdoutOptions.Debug, "stdout-debug", stdoutOptions.Debug, "Stdout debug")

	flags.StringVar(&prometheusMetricsOptions.URL, "prometheus-metrics-url", prometheusMetricsOptions.URL, "Prometheus metrics endpoint url")
	flags.StringVar(&prometheusMetricsOptions.Listen, "prometheus-metrics-listen", prometheusMetricsOptions.Listen, "Prometheus metrics listen")
	flags.StringVar(&prometheusMetricsOptions.Prefix, "prometheus-metrics-prefix", prometheusMetricsOptions.Prefix, "Prometheus metrics prefix")

	flags.IntVar(&endpointRules.DefaultPort, "endpoint-default-port", endpointRules.DefaultPort, "Endpoint default service port")
	flags.StringSliceVar(&endpointRules.BasePaths, "endpoint-base-paths", endpointRules.BasePaths, "Endpoint base paths")
	flags.StringSliceVar(&endpointRules.TokenPaths, "endpoint-token-paths", endpointRules.TokenPaths, "Endpoint access token paths")
	flags.StringVar(&endpointRules.Suffix, "endpoint-suffix", endpointRules.Suffix, "Endpoint path suffix")

	flags.StringSliceVar(&sourceFile.Paths, "source-file-paths", sourceFile.Paths, "Source file paths in priority order")
	flags.StringVar(&sourceConfig.Path, "source-config-path", sourceConfig.Path, "Source config path")

	flags.IntVar(&resolverCert.Timeout, "resolver-cert-timeout", resolverCert.Timeout, "Resolver cert handshake timeout in seconds")
	flags.StringVar(&resolverCert.CacheTTL, "resolver-cert-cache-ttl", resolverCert.CacheTTL, "Resolver cert cache TTL")
	flags.BoolVar(&resolverAugmentEnabled, "resolver-augment-enabled", resolverAugmentEnabled, "Resolver augment enabled")
	flags.IntVar(&resolverAugment.Workers, "resolver-augment-workers", resolverAugment.Workers, "Resolver augment workers")
	flags.BoolVar(&resolverAugment.ShowProgress, "resolver-augment-progress", resolverAugment.ShowProgress, "Resolver augment progress bar")

	flags.StringVar(&proberHttp.Method, "prober-http-method", proberHttp.Method, "Prober http method")
	flags.StringVar(&proberHttp.Headers, "prober-http-headers", proberHttp.Headers, "Prober http headers as json")
	flags.StringVar(&proberHttp.Payload, "prober-http-payload", proberHttp.Payload, "Prober http payload")
	flags.IntVar(&proberHttp.MaxLatency, "prober-http-max-latency", proberHttp.MaxLatency, "Prober http max latency in seconds")
	flags.StringVar(&proberHttp.IncludeWords, "prober-http-include-words", proberHttp.IncludeWords, "Prober http reply include words")
	flags.StringVar(&proberHttp.FailRegex, "prober-http-fail-regex", proberHttp.FailRegex, "Prober http reply fail regex")

	flags.BoolVar(&proberRandomEnabled, "prober-random-enabled", proberRandomEnabled, "Prober random enabled")
	flags.Float64Var(&proberRandom.MaxLatency, "prober-random-max-latency", proberRandom.MaxLatency, "Prober random max latency")
	flags.IntVar(&proberRandom.Delay, "prober-random-delay", proberRandom.Delay, "Prober random delay in milliseconds")

	flags.BoolVar(&reporterConsole.Enabled, "reporter-console-enabled", reporterConsole.Enabled, "Reporter console enabled")
	flags.StringVar(&reporterJson.Path, "reporter-json-path", reporterJson.Path, "Reporter json output path")
	flags.StringVar(&reporterTemplate.Content, "reporter-template-content", reporterTemplate.Content, "Reporter template content or file")
	flags.StringVar(&reporterTemplate.Output, "reporter-template-output", reporterTemplate.Output, "Reporter template output path")
	flags.BoolVar(&reporterLoggerEnabled, "reporter-logger-enabled", reporterLoggerEnabled, "Reporter logger enabled")

	flags.StringVar(&checkerAvailability.Schedule, "checker-availability-schedule", checkerAvailability.Schedule, "Checker availability schedule")
	flags.IntVar(&checkerAvailability.Workers, "checker-availability-workers", checkerAvailability.Workers, "Checker availability probe workers")
	flags.BoolVar(&checkerAvailability.ShowProgress, "checker-availability-progress", checkerAvailability.ShowProgress, "Checker availability progress bar")
	flags.StringVar(&checkerAvailability.DumpPath, "checker-availability-dump-path", checkerAvailability.DumpPath, "Checker availability processed urls dump path")

	interceptSyscall()

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		logs.Error(err)
		os.Exit(1)
	}
}
