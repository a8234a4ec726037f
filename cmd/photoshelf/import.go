package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sagarc03/photoshelf"
	"github.com/sagarc03/photoshelf/config"
)

var importCmd = &cobra.Command{
	Use:   "import [flags] <file1> [file2] ...",
	Short: "Import local photos into an account's project",
	Long: `Upload local files into a project as the given account, using the same
per-file path as HTTP uploads: one failing file does not stop the others.

Examples:
  # Import into an existing project
  photoshelf import --email ada@example.com --project 0f8c... a.jpg b.jpg

  # Create a project and import a directory into it
  photoshelf import --email ada@example.com --new-project "Summer 2024" -r ./summer`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

var (
	importEmail      string
	importProject    string
	importNewProject string
	importRecursive  bool
	importQuiet      bool
)

func init() {
	importCmd.Flags().StringVarP(&importEmail, "email", "e", "", "email of the owning account")
	importCmd.Flags().StringVarP(&importProject, "project", "p", "", "id of an existing project")
	importCmd.Flags().StringVar(&importNewProject, "new-project", "", "create a project with this name and import into it")
	importCmd.Flags().BoolVarP(&importRecursive, "recursive", "r", false, "recursively import directories")
	importCmd.Flags().BoolVarP(&importQuiet, "quiet", "q", false, "suppress per-file output")
	_ = importCmd.MarkFlagRequired("email")
	importCmd.MarkFlagsOneRequired("project", "new-project")
	importCmd.MarkFlagsMutuallyExclusive("project", "new-project")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var files []string
	for _, arg := range args {
		found, collectErr := collectFiles(arg, importRecursive)
		if collectErr != nil {
			return fmt.Errorf("collect files from %s: %w", arg, collectErr)
		}
		files = append(files, found...)
	}

	if len(files) == 0 {
		slog.Info("no files to import")
		return nil
	}

	b, err := openBackend(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer b.Close()

	account, err := b.repo.GetAccountByEmail(ctx, importEmail)
	if err != nil {
		return fmt.Errorf("find account %s: %w", importEmail, err)
	}

	projectID, err := resolveImportProject(ctx, b.service, account.ID)
	if err != nil {
		return err
	}

	stored, failed := 0, 0
	for _, batch := range photoshelf.ChunkKeys(files, cfg.Server.MaxFilesPerUpload) {
		s, f, batchErr := importBatch(ctx, b.service, account.ID, projectID, batch)
		if batchErr != nil {
			return batchErr
		}
		stored += s
		failed += f
	}

	slog.Info("import complete", "project_id", projectID, "stored", stored, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to import", failed, len(files))
	}
	return nil
}

func resolveImportProject(ctx context.Context, service *photoshelf.Service, owner uuid.UUID) (uuid.UUID, error) {
	if importNewProject != "" {
		p, err := service.CreateProject(ctx, owner, importNewProject, nil)
		if err != nil {
			return uuid.Nil, fmt.Errorf("create project: %w", err)
		}
		slog.Info("project created", "project_id", p.ID, "name", p.Name)
		return p.ID, nil
	}

	id, err := uuid.Parse(importProject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("project id %q: %w", importProject, photoshelf.ErrInvalidInput)
	}
	p, err := service.GetProject(ctx, owner, id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("project %s: %w", id, err)
	}
	return p.ID, nil
}

// importBatch uploads one batch of paths and reports how many were stored and failed.
func importBatch(ctx context.Context, service *photoshelf.Service, owner, projectID uuid.UUID, paths []string) (stored, failed int, err error) {
	uploads := make([]photoshelf.UploadFile, 0, len(paths))
	var opened []*os.File
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()

	for _, p := range paths {
		f, openErr := os.Open(p)
		if openErr != nil {
			return stored, failed, fmt.Errorf("open %s: %w", p, openErr)
		}
		opened = append(opened, f)

		info, statErr := f.Stat()
		if statErr != nil {
			return stored, failed, fmt.Errorf("stat %s: %w", p, statErr)
		}

		uploads = append(uploads, photoshelf.UploadFile{
			Name:        filepath.Base(p),
			ContentType: detectContentType(p),
			Size:        info.Size(),
			Content:     f,
		})
	}

	outcomes, err := service.UploadPhotos(ctx, owner, projectID, uploads)
	if err != nil {
		return stored, failed, fmt.Errorf("upload: %w", err)
	}

	for i, o := range outcomes {
		if o.Err != nil {
			failed++
			slog.Warn("import failed", "path", paths[i], "err", o.Err)
			continue
		}
		stored++
		if !importQuiet {
			slog.Info("imported", "path", paths[i], "photo_id", o.Photo.ID)
		}
	}

	return stored, failed, nil
}

// collectFiles gathers regular files from a path, optionally recursively.
func collectFiles(path string, recursive bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	if !recursive {
		return nil, fmt.Errorf("%s is a directory (use -r to import recursively)", path)
	}

	var files []string
	walkErr := filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		files = append(files, walkPath)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return files, nil
}

// detectContentType determines the MIME type from a file's extension.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "application/octet-stream"
	}

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		return "application/octet-stream"
	}

	return contentType
}

