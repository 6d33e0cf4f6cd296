package main

import (
	"fmt"
	"strconv"

	"github.com/VictoriaMetrics/metrics"
	"github.com/goliatone/go-call-history/cache"
	"github.com/spf13/cobra"
)

// Value kinds accepted by --as.
const (
	asString = "string"
	asInt    = "int"
	asFloat  = "float"
	asBytes  = "bytes"
)

// Trace formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func newDemoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo [values...]",
		Short: "Store values in the cache, read them back and replay the calls",
		Long: `Stores every argument in the instrumented cache, prints the generated key
and the value read back, then replays the recorded Cache.Store calls.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			as := a.v.GetString("as")
			format := a.v.GetString("format")
			if format != formatText && format != formatJSON && format != formatYAML {
				return fmt.Errorf("invalid format %s (expected one of: text, json, yaml)", format)
			}

			ctx := contextOf(cmd)
			c, err := a.container.Cache(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, arg := range args {
				value, err := parseValue(arg, as)
				if err != nil {
					return err
				}
				key, err := c.Store(ctx, value)
				if err != nil {
					return err
				}
				got, err := readBack(cmd, c, key, as)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s -> %v\n", key, got)
			}

			trace, err := c.Trace(ctx)
			if err != nil {
				return err
			}
			switch format {
			case formatJSON:
				err = trace.WriteJSON(out)
			case formatYAML:
				err = trace.WriteYAML(out)
			default:
				err = trace.WriteText(out)
			}
			if err != nil {
				return err
			}

			if a.v.GetBool("print-metrics") {
				metrics.WritePrometheus(out, false)
			}
			return nil
		},
	}

	cmd.Flags().String("as", asString, wrapString("how to store each value (string, int, float, bytes)"))
	cmd.Flags().String("format", formatText, wrapString("replay output format (text, json, yaml)"))
	cmd.Flags().Bool("print-metrics", false, wrapString("print the process metrics in Prometheus text format"))
	return cmd
}

func parseValue(arg, as string) (any, error) {
	switch as {
	case asString:
		return arg, nil
	case asBytes:
		return []byte(arg), nil
	case asInt:
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q must be an integer: %w", arg, err)
		}
		return n, nil
	case asFloat:
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q must be a number: %w", arg, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("invalid value kind %s (expected one of: string, int, float, bytes)", as)
	}
}

func readBack(cmd *cobra.Command, c *cache.Cache, key, as string) (any, error) {
	ctx := contextOf(cmd)
	var (
		value any
		ok    bool
		err   error
	)
	switch as {
	case asInt:
		value, ok, err = c.GetInt(ctx, key)
	case asFloat:
		value, ok, err = c.GetFloat(ctx, key)
	case asBytes:
		var raw []byte
		raw, ok, err = c.GetBytes(ctx, key)
		value = fmt.Sprintf("%q", raw)
	default:
		value, ok, err = c.GetString(ctx, key)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("key %s not found", key)
	}
	return value, nil
}
