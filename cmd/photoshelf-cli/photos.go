package main

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sagarc03/photoshelf/client"
)

var (
	uploadRecursive   bool
	uploadContentType string
	uploadBatchSize   int

	downloadOutput string
	downloadStdout bool

	urlExpires time.Duration
)

var uploadCmd = &cobra.Command{
	Use:   "upload <project-id> <local-path>",
	Short: "Upload photos to a project",
	Long: `Upload a file, or every file under a directory with --recursive.

Files are sent in batches; each file is reported on its own, and the command
fails if any file could not be stored.

Examples:
  photoshelf-cli upload 3f0c... ./IMG_0001.jpg
  photoshelf-cli upload -r 3f0c... ./wedding/
  photoshelf-cli upload -t image/heic 3f0c... ./IMG_0002`,
	Args: cobra.ExactArgs(2),
	RunE: runUpload,
}

var photosCmd = &cobra.Command{
	Use:   "photos <project-id>",
	Short: "List a project's photos, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runPhotos,
}

var downloadCmd = &cobra.Command{
	Use:   "download <project-id> <photo-id> [local-path]",
	Short: "Download a photo",
	Long: `Download a photo's content. Without a local path the photo's original
file name is used in the current directory.

Examples:
  photoshelf-cli download 3f0c... 9a1e...
  photoshelf-cli download 3f0c... 9a1e... ./out/beach.jpg
  photoshelf-cli download --stdout 3f0c... 9a1e... | exiftool -`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runDownload,
}

var urlCmd = &cobra.Command{
	Use:   "url <project-id> <photo-id>",
	Short: "Print a time-limited direct link to a photo",
	Args:  cobra.ExactArgs(2),
	RunE:  runURL,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <project-id> <photo-id> [photo-id...]",
	Short: "Delete photos",
	Long: `Delete one or more photos from a project. Each photo is deleted on its
own; the command fails if any of them could not be deleted.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runDelete,
}

func init() {
	uploadCmd.Flags().BoolVarP(&uploadRecursive, "recursive", "r", false, "upload directory recursively")
	uploadCmd.Flags().StringVarP(&uploadContentType, "content-type", "t", "", "override content-type")
	uploadCmd.Flags().IntVarP(&uploadBatchSize, "batch", "b", client.DefaultBatchSize, "files per request")

	addListFlags(photosCmd)

	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output file path")
	downloadCmd.Flags().BoolVar(&downloadStdout, "stdout", false, "write to stdout")

	urlCmd.Flags().DurationVarP(&urlExpires, "expires", "e", 0, "link lifetime, e.g. 30m (server default if 0)")
}

func runUpload(cmd *cobra.Command, args []string) error {
	projectID, err := parseID("project", args[0])
	if err != nil {
		return err
	}

	c, err := getClient()
	if err != nil {
		return err
	}

	results, err := c.Upload(cmd.Context(), client.UploadOptions{
		ProjectID:   projectID,
		LocalPath:   args[1],
		ContentType: uploadContentType,
		Recursive:   uploadRecursive,
		BatchSize:   uploadBatchSize,
	})
	if err != nil {
		return err
	}

	if err := getFormatter().FormatUpload(os.Stdout, results); err != nil {
		return err
	}

	if client.HasUploadErrors(results) {
		return &exitError{}
	}
	return nil
}

func runPhotos(cmd *cobra.Command, args []string) error {
	projectID, err := parseID("project", args[0])
	if err != nil {
		return err
	}

	c, err := getClient()
	if err != nil {
		return err
	}

	photos, err := c.ListPhotos(cmd.Context(), projectID, listOptions())
	if err != nil {
		return err
	}

	return getFormatter().FormatPhotos(os.Stdout, photos)
}

func runDownload(cmd *cobra.Command, args []string) error {
	projectID, err := parseID("project", args[0])
	if err != nil {
		return err
	}
	photoID, err := parseID("photo", args[1])
	if err != nil {
		return err
	}

	localPath := ""
	if len(args) > 2 {
		localPath = args[2]
	}
	if downloadOutput != "" {
		localPath = downloadOutput
	}
	if downloadStdout {
		localPath = "-"
	}

	c, err := getClient()
	if err != nil {
		return err
	}

	result, reader, err := c.Download(cmd.Context(), client.DownloadOptions{
		ProjectID: projectID,
		PhotoID:   photoID,
		LocalPath: localPath,
	})
	if err != nil {
		return err
	}

	if reader != nil {
		defer func() { _ = reader.Close() }()
		if _, err := io.Copy(os.Stdout, reader); err != nil {
			return err
		}
		// stdout carries the content, so metadata only goes to stderr in JSON mode
		if jsonOutput {
			return getFormatter().FormatDownload(os.Stderr, result)
		}
		return nil
	}

	return getFormatter().FormatDownload(os.Stdout, result)
}

func runURL(cmd *cobra.Command, args []string) error {
	projectID, err := parseID("project", args[0])
	if err != nil {
		return err
	}
	photoID, err := parseID("photo", args[1])
	if err != nil {
		return err
	}

	c, err := getClient()
	if err != nil {
		return err
	}

	u, err := c.PresignURL(cmd.Context(), projectID, photoID, urlExpires)
	if err != nil {
		return err
	}

	return getFormatter().FormatURL(os.Stdout, u)
}

func runDelete(cmd *cobra.Command, args []string) error {
	projectID, err := parseID("project", args[0])
	if err != nil {
		return err
	}

	photoIDs := make([]uuid.UUID, 0, len(args)-1)
	for _, raw := range args[1:] {
		id, err := parseID("photo", raw)
		if err != nil {
			return err
		}
		photoIDs = append(photoIDs, id)
	}

	c, err := getClient()
	if err != nil {
		return err
	}

	results, err := c.DeletePhotos(cmd.Context(), projectID, photoIDs)
	if err != nil {
		return err
	}

	if err := getFormatter().FormatDelete(os.Stdout, results); err != nil {
		return err
	}

	if client.HasDeleteErrors(results) {
		return &exitError{}
	}
	return nil
}
