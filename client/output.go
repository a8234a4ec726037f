package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sagarc03/photoshelf"
)

// Formatter formats results for output.
type Formatter interface {
	FormatAccount(w io.Writer, account *photoshelf.Account) error
	FormatProject(w io.Writer, project *photoshelf.Project) error
	FormatProjects(w io.Writer, projects []photoshelf.ProjectSummary) error
	FormatPhotos(w io.Writer, photos []photoshelf.Photo) error
	FormatUpload(w io.Writer, results []UploadResult) error
	FormatDownload(w io.Writer, result *DownloadResult) error
	FormatURL(w io.Writer, u *PresignedURL) error
	FormatDelete(w io.Writer, results []DeleteResult) error
	FormatCleanup(w io.Writer, what string, report *photoshelf.CleanupReport) error
	FormatError(w io.Writer, err error) error
	FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error
	FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

const timeLayout = "2006-01-02 15:04:05"

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

func (f *HumanFormatter) FormatAccount(w io.Writer, account *photoshelf.Account) error {
	_, _ = fmt.Fprintf(w, "ID:      %s\n", account.ID)
	_, _ = fmt.Fprintf(w, "Name:    %s\n", account.Name)
	_, _ = fmt.Fprintf(w, "Email:   %s\n", account.Email)
	_, _ = fmt.Fprintf(w, "Created: %s\n", account.CreatedAt.Format(timeLayout))
	return nil
}

func (f *HumanFormatter) FormatProject(w io.Writer, project *photoshelf.Project) error {
	if f.Quiet {
		_, _ = fmt.Fprintln(w, project.ID)
		return nil
	}
	_, _ = fmt.Fprintf(w, "ID:          %s\n", project.ID)
	_, _ = fmt.Fprintf(w, "Name:        %s\n", project.Name)
	if project.Description != nil {
		_, _ = fmt.Fprintf(w, "Description: %s\n", *project.Description)
	}
	_, _ = fmt.Fprintf(w, "Created:     %s\n", project.CreatedAt.Format(timeLayout))
	return nil
}

// FormatProjects prints one row per project.
func (f *HumanFormatter) FormatProjects(w io.Writer, projects []photoshelf.ProjectSummary) error {
	if len(projects) == 0 {
		_, _ = fmt.Fprintln(w, "No projects found")
		return nil
	}

	nameLen := 4 // "NAME"
	for i := range projects {
		nameLen = max(nameLen, len(projects[i].Name))
	}
	nameLen = min(nameLen, 40)

	_, _ = fmt.Fprintf(w, "%-36s  %-*s  %6s  %s\n", "ID", nameLen, "NAME", "PHOTOS", "CREATED")
	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s\n", strings.Repeat("-", 36), strings.Repeat("-", nameLen), strings.Repeat("-", 6), strings.Repeat("-", 19))

	for i := range projects {
		p := &projects[i]
		_, _ = fmt.Fprintf(w, "%-36s  %-*s  %6d  %s\n",
			p.ID, nameLen, truncate(p.Name, nameLen), p.PhotoCount, p.CreatedAt.Format(timeLayout))
	}

	_, _ = fmt.Fprintf(w, "\n%d project(s)\n", len(projects))
	return nil
}

// FormatPhotos prints one row per photo.
func (f *HumanFormatter) FormatPhotos(w io.Writer, photos []photoshelf.Photo) error {
	if len(photos) == 0 {
		_, _ = fmt.Fprintln(w, "No photos found")
		return nil
	}

	nameLen := 4 // "NAME"
	for i := range photos {
		nameLen = max(nameLen, len(photos[i].OriginalName))
	}
	nameLen = min(nameLen, 60)

	_, _ = fmt.Fprintf(w, "%-36s  %-*s  %10s  %s\n", "ID", nameLen, "NAME", "SIZE", "CREATED")
	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s\n", strings.Repeat("-", 36), strings.Repeat("-", nameLen), strings.Repeat("-", 10), strings.Repeat("-", 19))

	var total int64
	for i := range photos {
		p := &photos[i]
		total += p.SizeBytes
		_, _ = fmt.Fprintf(w, "%-36s  %-*s  %10s  %s\n",
			p.ID, nameLen, truncate(p.OriginalName, nameLen), formatSize(p.SizeBytes), p.CreatedAt.Format(timeLayout))
	}

	_, _ = fmt.Fprintf(w, "\n%d photo(s) (%s total)\n", len(photos), formatSize(total))
	return nil
}

// FormatUpload formats upload results as human-readable text.
func (f *HumanFormatter) FormatUpload(w io.Writer, results []UploadResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.LocalPath, r.Err)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Uploaded: %s (%s)\n", r.LocalPath, formatSize(r.Photo.SizeBytes))
			_, _ = fmt.Fprintf(w, "  ID: %s\n", r.Photo.ID)
		}
	}
	return nil
}

// FormatDownload formats download result as human-readable text.
func (f *HumanFormatter) FormatDownload(w io.Writer, result *DownloadResult) error {
	if f.Quiet {
		return nil
	}
	if result.LocalPath == "-" {
		_, _ = fmt.Fprintf(w, "Downloaded: %s (%s)\n", result.PhotoID, formatSize(result.Size))
	} else {
		_, _ = fmt.Fprintf(w, "Downloaded: %s -> %s (%s)\n", result.PhotoID, result.LocalPath, formatSize(result.Size))
	}
	return nil
}

func (f *HumanFormatter) FormatURL(w io.Writer, u *PresignedURL) error {
	_, _ = fmt.Fprintln(w, u.URL)
	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "  Expires: %s\n", u.ExpiresAt.Format(timeLayout))
	}
	return nil
}

// FormatDelete formats delete results as human-readable text.
func (f *HumanFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.PhotoID, r.Err)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Deleted: %s%s\n", r.PhotoID, cleanupNote(r.Report))
		}
	}
	return nil
}

// FormatCleanup reports a cascading delete.
func (f *HumanFormatter) FormatCleanup(w io.Writer, what string, report *photoshelf.CleanupReport) error {
	if f.Quiet {
		return nil
	}
	_, _ = fmt.Fprintf(w, "Deleted: %s (%d file(s) removed)%s\n", what, report.Deleted, cleanupNote(report))
	return nil
}

// cleanupNote flags files the server could not remove from storage. The
// metadata delete already succeeded when this is non-empty.
func cleanupNote(report *photoshelf.CleanupReport) string {
	if report == nil || report.Failed == 0 {
		return ""
	}
	return fmt.Sprintf(" [warning: %d file(s) left in storage]", report.Failed)
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// FormatProfileList formats a list of profiles as human-readable text.
func (f *HumanFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	nameLen := 4     // "NAME"
	endpointLen := 8 // "ENDPOINT"
	for i := range profiles {
		nameLen = max(nameLen, len(profiles[i].Name))
		endpointLen = max(endpointLen, len(profiles[i].Endpoint))
	}
	nameLen = min(nameLen, 20)
	endpointLen = min(endpointLen, 50)

	_, _ = fmt.Fprintf(w, "  %-*s  %-*s  %-24s  %s\n", nameLen, "NAME", endpointLen, "ENDPOINT", "EMAIL", "TOKEN")
	_, _ = fmt.Fprintf(w, "  %s  %s  %s  %s\n", strings.Repeat("-", nameLen), strings.Repeat("-", endpointLen), strings.Repeat("-", 24), strings.Repeat("-", 12))

	for i := range profiles {
		p := &profiles[i]
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}

		_, _ = fmt.Fprintf(w, "%s %-*s  %-*s  %-24s  %s\n",
			marker,
			nameLen, truncate(p.Name, nameLen),
			endpointLen, truncate(p.Endpoint, endpointLen),
			truncate(p.Email, 24),
			maskSecret(p.Token, showSecrets),
		)
	}

	return nil
}

// FormatProfileShow formats a single profile as human-readable text.
func (f *HumanFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	_, _ = fmt.Fprintf(w, "Name:     %s", profile.Name)
	if isDefault {
		_, _ = fmt.Fprintf(w, " (default)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Endpoint: %s\n", profile.Endpoint)
	_, _ = fmt.Fprintf(w, "Email:    %s\n", profile.Email)
	_, _ = fmt.Fprintf(w, "Token:    %s\n", maskSecret(profile.Token, showSecrets))
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) FormatAccount(w io.Writer, account *photoshelf.Account) error {
	return writeJSON(w, account)
}

func (f *JSONFormatter) FormatProject(w io.Writer, project *photoshelf.Project) error {
	return writeJSON(w, project)
}

func (f *JSONFormatter) FormatProjects(w io.Writer, projects []photoshelf.ProjectSummary) error {
	return writeJSON(w, itemsResponse[photoshelf.ProjectSummary]{Items: nonNil(projects)})
}

func (f *JSONFormatter) FormatPhotos(w io.Writer, photos []photoshelf.Photo) error {
	return writeJSON(w, itemsResponse[photoshelf.Photo]{Items: nonNil(photos)})
}

// FormatUpload formats upload results as JSON.
func (f *JSONFormatter) FormatUpload(w io.Writer, results []UploadResult) error {
	type jsonResult struct {
		LocalPath string            `json:"local_path"`
		Photo     *photoshelf.Photo `json:"photo,omitempty"`
		Error     string            `json:"error,omitempty"`
	}

	output := make([]jsonResult, len(results))
	for i := range results {
		r := &results[i]
		output[i] = jsonResult{LocalPath: r.LocalPath, Photo: r.Photo}
		if r.Err != nil {
			output[i].Error = r.Err.Error()
		}
	}

	return writeJSON(w, output)
}

// FormatDownload formats download result as JSON.
func (f *JSONFormatter) FormatDownload(w io.Writer, result *DownloadResult) error {
	return writeJSON(w, result)
}

func (f *JSONFormatter) FormatURL(w io.Writer, u *PresignedURL) error {
	return writeJSON(w, u)
}

// FormatDelete formats delete results as JSON.
func (f *JSONFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	type jsonResult struct {
		PhotoID string                    `json:"photo_id"`
		Deleted bool                      `json:"deleted"`
		Report  *photoshelf.CleanupReport `json:"report,omitempty"`
		Error   string                    `json:"error,omitempty"`
	}

	output := struct {
		Results []jsonResult `json:"results"`
	}{
		Results: make([]jsonResult, len(results)),
	}

	for i := range results {
		r := &results[i]
		jr := jsonResult{PhotoID: r.PhotoID.String(), Deleted: r.Err == nil, Report: r.Report}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		output.Results[i] = jr
	}

	return writeJSON(w, output)
}

func (f *JSONFormatter) FormatCleanup(w io.Writer, what string, report *photoshelf.CleanupReport) error {
	return writeJSON(w, struct {
		Deleted string                   `json:"deleted"`
		Report  photoshelf.CleanupReport `json:"report"`
	}{Deleted: what, Report: *report})
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}
	return writeJSON(w, output)
}

// FormatProfileList formats a list of profiles as JSON.
func (f *JSONFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	output := struct {
		Profiles []jsonProfile `json:"profiles"`
	}{
		Profiles: make([]jsonProfile, len(profiles)),
	}

	for i := range profiles {
		output.Profiles[i] = newJSONProfile(profiles[i], profiles[i].Name == defaultName, showSecrets)
	}

	return writeJSON(w, output)
}

// FormatProfileShow formats a single profile as JSON.
func (f *JSONFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	return writeJSON(w, newJSONProfile(profile, isDefault, showSecrets))
}

type jsonProfile struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	Email    string `json:"email,omitempty"`
	Token    string `json:"token"`
	Default  bool   `json:"default"`
}

func newJSONProfile(p Profile, isDefault, showSecrets bool) jsonProfile {
	return jsonProfile{
		Name:     p.Name,
		Endpoint: p.Endpoint,
		Email:    p.Email,
		Token:    maskSecret(p.Token, showSecrets),
		Default:  isDefault,
	}
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	case bytes < 0:
		return "?"
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// maskSecret shows only the first and last 4 characters of a secret unless
// showSecrets is set.
func maskSecret(secret string, showSecrets bool) string {
	if showSecrets {
		return secret
	}
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
