// Package catalogqa embeds the catalog question-answering pipeline in a Go
// program: query classification, metadata filter synthesis, cached retrieval
// with an unfiltered fallback, and answer generation.
//
// # In-memory corpus
//
//	client, _ := catalogqa.New(ctx,
//	    catalogqa.WithDocuments(docs),
//	    catalogqa.WithEmbedder(myEmbedder),
//	    catalogqa.WithCompleter(myCompleter),
//	)
//	defer client.Close()
//	ans, _ := client.Ask(ctx, "How do I install GreenLake?", catalogqa.AskTopK(5))
//
// # Catalog file, OpenAI-compatible providers and a Redis index
//
//	client, _ := catalogqa.New(ctx,
//	    catalogqa.WithCatalogFile("data/catalog.yaml"),
//	    catalogqa.WithOpenAI(apiKey, "", "text-embedding-3-small", "gpt-4o-mini"),
//	    catalogqa.WithRedis("localhost:6379", ""),
//	)
//
// Streaming:
//
//	ans, _ := client.AskStream(ctx, question, func(tok string) { fmt.Print(tok) })
package catalogqa
