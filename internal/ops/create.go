package ops

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hpungsan/kiln/internal/component"
	"github.com/hpungsan/kiln/internal/db"
	"github.com/hpungsan/kiln/internal/errors"
	"github.com/hpungsan/kiln/internal/metrics"
)

// MaxCodeBytes bounds submitted component source.
const MaxCodeBytes = 256 << 10

var inputValidate = validator.New()

// CreateInput contains parameters for the Create operation.
type CreateInput struct {
	Name        string   `validate:"required,max=100"`
	Description string   `validate:"max=2000"`
	Category    string   `validate:"max=64"`
	Tags        []string `validate:"max=32,dive,required,max=64"`
	Status      string   `validate:"omitempty,oneof=active draft deprecated"`
	Code        string   `validate:"required,max=262144"`
	ChangedBy   string   `validate:"max=200"`

	// GenerateDocs runs the documentation pipeline for version 1.
	GenerateDocs bool
}

// CreateOutput contains the result of the Create operation.
type CreateOutput struct {
	Component              *component.Component `json:"component"`
	Version                *component.Version   `json:"version"`
	DocumentationGenerated bool                 `json:"documentation_generated"`
	DocumentationError     string               `json:"documentation_error,omitempty"`
}

// Create registers a new component at version 1. The version blob and alias
// are written before the rows, as with every commit.
func Create(ctx context.Context, e *Env, input CreateInput) (*CreateOutput, error) {
	if err := inputValidate.Struct(input); err != nil {
		return nil, inputError(err)
	}

	name, err := resolveName(input.Name)
	if err != nil {
		return nil, err
	}
	if err := validateCode(e, input.Code); err != nil {
		return nil, err
	}

	// The alias must not be overwritten for a name that is already taken.
	if _, err := db.GetComponentByName(ctx, e.DB, name); err == nil {
		return nil, errors.NewNameAlreadyExists(name)
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	status := input.Status
	if status == "" {
		status = component.StatusActive
	}

	ts := e.now()
	code := []byte(input.Code)
	key := component.VersionKey(name, 1, ts.UnixNano())
	meta := map[string]string{"component": name, "version": "1"}

	if err := e.Blobs.Put(ctx, key, code, component.ContentTypeJS, meta); err != nil {
		return nil, errors.NewStorageFailure(err, map[string]any{"stage": "version_blob", "partial": false})
	}
	if err := e.Blobs.Put(ctx, component.AliasKey(name), code, component.ContentTypeJS, meta); err != nil {
		return nil, errors.NewStorageFailure(err, map[string]any{"stage": "alias_blob", "partial": true, "orphan_blob": key})
	}

	c := &component.Component{
		ID:             id,
		Name:           name,
		Slug:           name,
		Description:    strings.TrimSpace(input.Description),
		Category:       component.Normalize(input.Category),
		Tags:           cleanTags(input.Tags),
		CurrentVersion: 1,
		Status:         status,
		AliasPath:      component.AliasKey(name),
		CreatedAt:      ts.Unix(),
		UpdatedAt:      ts.Unix(),
	}
	v := &component.Version{
		ComponentID:       id,
		VersionNumber:     1,
		BlobPath:          key,
		ChangeDescription: "created",
		ChangedBy:         input.ChangedBy,
		ContentHash:       component.ContentHash(code),
		CreatedAt:         ts.Unix(),
	}

	if err := db.InsertComponent(ctx, e.DB, c, v); err != nil {
		if stderrors.Is(err, db.ErrUniqueConstraint) {
			// Lost a create race: put the winner's content back on the alias.
			if rerr := realignAlias(ctx, e, name); rerr != nil {
				e.logger().Error("alias realignment failed", slog.String("component", name), slog.String("error", rerr.Error()))
			}
			return nil, errors.NewNameAlreadyExists(name)
		}
		return nil, errors.NewStorageFailure(err, map[string]any{
			"stage":       "metadata",
			"partial":     true,
			"orphan_blob": key,
			"alias_ahead": true,
		})
	}
	e.Metrics.ObserveCommit("create", metrics.OutcomeSuccess)
	e.logger().Info("component created", slog.String("component", name), slog.String("id", id))

	out := &CreateOutput{Component: c, Version: v}
	if input.GenerateDocs {
		out.DocumentationGenerated, out.DocumentationError = runDocs(ctx, e, name, 1, input.Code)
	}
	return out, nil
}

// inputError turns validator output into INVALID_REQUEST naming the first bad field.
func inputError(err error) error {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		msg := fmt.Sprintf("%s failed %q", field, fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s failed %q (%s)", field, fe.Tag(), fe.Param())
		}
		if fe.Tag() == "required" {
			msg = field + " is required"
		}
		return errors.NewInvalidRequest(msg)
	}
	return errors.NewInvalidRequest(err.Error())
}

func cleanTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = component.Normalize(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

