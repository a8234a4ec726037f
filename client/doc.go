// Package client is a Go client for the photoshelf HTTP API.
//
// It covers accounts, projects and photos: login, project management,
// multipart photo upload, listing, download, presigned links and deletes.
// Requests authenticate with the bearer token returned by Login.
//
// # Basic Usage
//
//	c, err := client.New(&client.Config{Endpoint: "http://localhost:5708"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if _, err := c.Login(ctx, "ada@example.com", "correct horse"); err != nil {
//		log.Fatal(err)
//	}
//
//	results, err := c.Upload(ctx, client.UploadOptions{
//		ProjectID: projectID,
//		LocalPath: "./holiday",
//		Recursive: true,
//	})
//
// # Profile Configuration
//
// Profiles in ~/.photoshelf/config.yaml store an endpoint and the token saved
// by 'photoshelf-cli login':
//
//	configFile, err := client.LoadConfigFile(client.DefaultConfigPath())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := configFile.GetProfile("")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	c, err := client.New(client.ConfigFromProfile(profile))
//
// # Errors
//
// Server errors are returned as *APIError. Compare them with errors.Is
// against ErrNotFound, ErrUnauthorized and the other sentinels.
package client
