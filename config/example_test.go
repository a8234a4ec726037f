package config_test

import (
	"context"
	"fmt"
	"log"

	"github.com/sagarc03/photoshelf/config"
)

func ExampleLoad() {
	cfg, err := config.Load(nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("listen :%d, %s metadata, %s blobs\n", cfg.Server.Port, cfg.Database.Type, cfg.Storage.Backend)
	// Output: listen :5708, sqlite metadata, filesystem blobs
}

func ExampleConfig_ServiceConfig() {
	cfg, err := config.Load(nil, nil)
	if err != nil {
		log.Fatal(err)
	}

	sc := cfg.ServiceConfig()
	fmt.Println("cleanup timeout:", sc.CleanupTimeout)
	fmt.Println("presign ttl:", sc.DefaultPresignTTL)
	fmt.Println("upload workers:", sc.UploadConcurrency)
	// Output:
	// cleanup timeout: 30s
	// presign ttl: 1h0m0s
	// upload workers: 4
}

func ExampleFromContext() {
	cfg, err := config.Load(nil, nil)
	if err != nil {
		log.Fatal(err)
	}

	ctx := config.WithContext(context.Background(), cfg)

	if _, err := config.FromContext(context.Background()); err != nil {
		fmt.Println("bare context:", err != nil)
	}
	got, err := config.FromContext(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("same config:", got == cfg)
	// Output:
	// bare context: true
	// same config: true
}
