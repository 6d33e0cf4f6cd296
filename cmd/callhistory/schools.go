package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-call-history/docstore"
	"github.com/goliatone/go-call-history/schools"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newSchoolsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schools",
		Short: "Query and update the school collection",
	}
	cmd.PersistentFlags().String("collection", "school", wrapString("name of the collection"))
	cmd.PersistentFlags().String("format", formatJSON, wrapString("document output format (json, yaml)"))

	collection := func(cmd *cobra.Command) (docstore.Collection, error) {
		return a.container.Collection(contextOf(cmd), a.v.GetString("collection"))
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every school",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			coll, err := collection(cmd)
			if err != nil {
				return err
			}
			docs, err := schools.ListAll(contextOf(cmd), coll)
			if err != nil {
				return err
			}
			return writeDocuments(cmd.OutOrStdout(), a.v.GetString("format"), docs)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "insert [field=value...]",
		Short: "Insert a school and print its id",
		Long: `Insert a school built from field=value pairs. A value holding commas is
stored as a list, so topics=C,Algo becomes ["C", "Algo"].`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(args)
			if err != nil {
				return err
			}
			coll, err := collection(cmd)
			if err != nil {
				return err
			}
			id, err := schools.InsertSchool(contextOf(cmd), coll, fields)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "update-topics [name] [topics...]",
		Short: "Replace the topics of every school with the given name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := collection(cmd)
			if err != nil {
				return err
			}
			topics := append([]string{}, args[1:]...)
			res, err := schools.UpdateTopics(contextOf(cmd), coll, args[0], topics)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "matched %d, modified %d\n", res.Matched, res.Modified)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "by-topic [topic]",
		Short: "List the schools having a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := collection(cmd)
			if err != nil {
				return err
			}
			docs, err := schools.SchoolsByTopic(contextOf(cmd), coll, args[0])
			if err != nil {
				return err
			}
			return writeDocuments(cmd.OutOrStdout(), a.v.GetString("format"), docs)
		},
	})

	return cmd
}

func parseFields(args []string) (docstore.Document, error) {
	fields := docstore.Document{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q (expected field=value)", arg)
		}
		if strings.Contains(value, ",") {
			fields[name] = strings.Split(value, ",")
			continue
		}
		fields[name] = value
	}
	return fields, nil
}

func writeDocuments(w io.Writer, format string, docs []docstore.Document) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(docs); err != nil {
			return err
		}
		return enc.Close()
	case formatJSON:
		enc := json.NewEncoder(w)
		for _, doc := range docs {
			if err := enc.Encode(doc); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("invalid format %s (expected one of: json, yaml)", format)
	}
}
