// Package pinecone implements storage.VectorIndex against Pinecone's REST API.
//
// The client resolves the index data plane host from the control plane when
// no host is configured, then issues upsert and query calls scoped to a
// single namespace.
//
//	cfg := pinecone.DefaultConfig()
//	cfg.APIKey = os.Getenv("PINECONE_API_KEY")
//	index, err := pinecone.NewIndex(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer index.Close()
package pinecone
