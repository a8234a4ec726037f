package photoshelf

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Guard resolves entities on behalf of a verified caller. Absent entities and
// entities owned by someone else produce the same ErrNotFound.
type Guard struct {
	repo MetadataRepo
}

func NewGuard(repo MetadataRepo) *Guard {
	return &Guard{repo: repo}
}

// OwnsProject reports whether p belongs to caller.
func OwnsProject(caller uuid.UUID, p Project) bool {
	return caller != uuid.Nil && p.AccountID == caller
}

// OwnsPhoto reports whether ph belongs to caller through project projectID.
func OwnsPhoto(caller, projectID uuid.UUID, ph Photo) bool {
	return caller != uuid.Nil && ph.AccountID == caller && ph.ProjectID == projectID
}

// ResolveProject returns the project when caller owns it.
func (g *Guard) ResolveProject(ctx context.Context, caller, projectID uuid.UUID) (Project, error) {
	if err := ctx.Err(); err != nil {
		return Project{}, fmt.Errorf("resolve project: %w", err)
	}

	p, err := g.repo.GetProject(ctx, caller, projectID)
	if err != nil {
		return Project{}, fmt.Errorf("resolve project: %w", err)
	}
	if !OwnsProject(caller, p) || p.ID != projectID {
		return Project{}, fmt.Errorf("resolve project: %w", ErrNotFound)
	}

	return p, nil
}

// ResolvePhoto returns the photo when the full chain caller -> projectID -> photoID matches.
func (g *Guard) ResolvePhoto(ctx context.Context, caller, projectID, photoID uuid.UUID) (Photo, error) {
	if err := ctx.Err(); err != nil {
		return Photo{}, fmt.Errorf("resolve photo: %w", err)
	}

	ph, err := g.repo.GetPhoto(ctx, caller, projectID, photoID)
	if err != nil {
		return Photo{}, fmt.Errorf("resolve photo: %w", err)
	}
	if !OwnsPhoto(caller, projectID, ph) || ph.ID != photoID {
		return Photo{}, fmt.Errorf("resolve photo: %w", ErrNotFound)
	}

	return ph, nil
}
