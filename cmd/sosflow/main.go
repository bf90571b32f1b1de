package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pesekon2/sosflow"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "vector":
		err = importCommand(cmd, os.Args[2:], (*sosflow.Runtime).RunVector)
	case "raster":
		err = importCommand(cmd, os.Args[2:], (*sosflow.Runtime).RunRaster)
	case "temporal-vector":
		err = importCommand(cmd, os.Args[2:], (*sosflow.Runtime).RunTemporalVector)
	case "temporal-raster":
		err = importCommand(cmd, os.Args[2:], (*sosflow.Runtime).RunTemporalRaster)
	case "describe":
		err = describeCommand(os.Args[2:])
	case "convert":
		err = convertCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("sosflow %s: %v", cmd, err)
	}
}

func importCommand(name string, args []string, run func(*sosflow.Runtime, context.Context) error) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := sosflow.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := sosflow.NewRuntime(cfg)
	if err != nil {
		return err
	}
	rt.StartMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := run(rt, ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Shutdown(shutdownCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func describeCommand(args []string) error {
	fs := flag.NewFlagSet("describe", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "Path to configuration file")
	shell := fs.Bool("shell", false, "Emit key=value lines for script consumption")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := sosflow.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := sosflow.NewRuntime(cfg)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Shutdown(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	style := sosflow.DescribePlain
	if *shell {
		style = sosflow.DescribeShell
	}
	out, err := rt.Describe(ctx, style)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func convertCommand(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	input := fs.String("input", "", "Raw observation payload file")
	output := fs.String("output", "", "GeoJSON output file (default stdout)")
	format := fs.String("format", "xml", "Payload format: xml or json")
	property := fs.String("property", "", "Observed property to extract")
	importEmpty := fs.Bool("import-empty", false, "Keep procedures without observations")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		return fmt.Errorf("-input is required")
	}
	if *property == "" {
		return fmt.Errorf("-property is required")
	}

	payload, err := os.ReadFile(*input)
	if err != nil {
		return err
	}

	raw, err := sosflow.Convert(payload, sosflow.PayloadFormat(*format), *property, *importEmpty)
	if err != nil {
		return err
	}

	if *output == "" {
		fmt.Println(string(raw))
		return nil
	}
	return os.WriteFile(*output, raw, 0o644)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := sosflow.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func printUsage() {
	fmt.Println(`Usage: sosflow <command> [flags]

Commands:
  vector           import offerings as vector attribute tables
  raster           import offerings as per-bucket raster maps
  temporal-vector  import per-bucket vector tables into space-time datasets
  temporal-raster  import per-bucket raster maps into space-time datasets
  describe         print the service description for the configured offerings
  convert          convert a raw observation payload to GeoJSON
  validate         check a configuration file
  help             show this message

Run "sosflow <command> -h" for command flags.`)
}
