package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sachtalks/sachtalks-api/internal/config"
	"github.com/sachtalks/sachtalks-api/internal/database"
	"github.com/sachtalks/sachtalks-api/internal/dispatch"
	"github.com/sachtalks/sachtalks-api/internal/docclient"
	"github.com/sachtalks/sachtalks-api/internal/docstore"
	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
)

const defaultCollection = "test_collection"

// testDocument is the shape written by insert.
type testDocument struct {
	ID        string `json:"_id,omitempty"`
	Name      string `json:"name"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
}

type options struct {
	api        string
	collection string
	timeout    time.Duration
}

// client talks to the remote dispatcher when --api is set, otherwise to MongoDB directly.
func (o *options) client(cfg *config.Config) (*docclient.Client, func()) {
	if o.api != "" {
		return docclient.New(docclient.NewHTTPTransport(strings.TrimRight(o.api, "/"), o.timeout)), func() {}
	}
	mgr := database.NewManager(cfg.MongoDB)
	d := dispatch.New(docstore.NewMongoStore(mgr))
	return docclient.New(docclient.NewLocalTransport(d)), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Close(ctx)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "mongoctl",
		Short:         "Exercise the document store through the action dispatcher",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&o.api, "api", cfg.Store.APIURL, "dispatcher base URL (empty: connect to MONGODB_URI directly)")
	root.PersistentFlags().StringVarP(&o.collection, "collection", "c", defaultCollection, "collection name")
	root.PersistentFlags().DurationVar(&o.timeout, "timeout", 15*time.Second, "per-command timeout")

	run := func(fn func(ctx context.Context, c *docclient.Client, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			c, closeFn := o.client(cfg)
			defer closeFn()
			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()
			return fn(ctx, c, cmd, args)
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "ping",
		Short: "Count the documents of the collection to prove connectivity",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, c *docclient.Client, cmd *cobra.Command, _ []string) error {
			n, err := c.Count(ctx, o.collection, docclient.Query{})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d documents in %s\n", n, o.collection)
			return nil
		}),
	})

	var name, message string
	insert := &cobra.Command{
		Use:   "insert",
		Short: "Insert a test document",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, c *docclient.Client, cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(name) == "" || strings.TrimSpace(message) == "" {
				return apperrors.Client("both --name and --message are required")
			}
			doc := map[string]interface{}{
				"name":      name,
				"message":   message,
				"createdAt": time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			}
			var out testDocument
			if err := c.InsertOne(ctx, o.collection, doc, &out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %s\n", out.ID)
			return nil
		}),
	}
	insert.Flags().StringVar(&name, "name", "", "document name")
	insert.Flags().StringVar(&message, "message", "", "document message")
	root.AddCommand(insert)

	var limit int64
	find := &cobra.Command{
		Use:   "find",
		Short: "List documents, newest first",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, c *docclient.Client, cmd *cobra.Command, _ []string) error {
			opts := &dispatch.Options{Sort: bson.D{{Key: "createdAt", Value: -1}}, Limit: limit}
			var docs []testDocument
			if err := c.Find(ctx, o.collection, docclient.Query{}, opts, &docs); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, d := range docs {
				if err := enc.Encode(d); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "found %d documents\n", len(docs))
			return nil
		}),
	}
	find.Flags().Int64Var(&limit, "limit", 0, "maximum documents to list (0: all)")
	root.AddCommand(find)

	root.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one document by its 24 character hex id",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, c *docclient.Client, cmd *cobra.Command, args []string) error {
			res, err := c.DeleteOne(ctx, o.collection, docclient.Query{"_id": docclient.OID(args[0])})
			if err != nil {
				return err
			}
			if res.DeletedCount == 0 {
				return apperrors.NotFound("document %s was not found in %s", args[0], o.collection)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		}),
	})

	return root
}
