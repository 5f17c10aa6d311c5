package httpapi

import (
	"context"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/mkochhar/jobops/internal/apperr"
	"github.com/mkochhar/jobops/internal/models"
)

// TargetIDInput is the path parameter every per-target route takes.
type TargetIDInput struct {
	ID string `path:"id"`
}

// TargetsOutput wraps a Target list or single Target in the envelope.
type TargetsOutput struct {
	Body envelopeData
}

// TargetBody is the writable shape of a Target, used by both create and
// update so callers don't have to resend server-managed fields.
type TargetBody struct {
	Name         string   `json:"name"`
	PrimaryRole  string   `json:"primary_role"`
	Seniority    string   `json:"seniority,omitempty"`
	Location     string   `json:"location,omitempty"`
	Must         []string `json:"must,omitempty"`
	Nice         []string `json:"nice,omitempty"`
	Reject       []string `json:"reject,omitempty"`
}

func registerTargetRoutes(api huma.API, deps *Deps) {
	huma.Get(api, "/targets", func(ctx context.Context, input *struct{}) (*TargetsOutput, error) {
		targets, err := deps.Repos.Target.List(ctx)
		if err != nil {
			return nil, err
		}
		return &TargetsOutput{Body: envelopeData{OK: true, Data: targets}}, nil
	})

	huma.Get(api, "/targets/{id}", func(ctx context.Context, input *TargetIDInput) (*TargetsOutput, error) {
		t, err := deps.Repos.Target.MustGetByID(ctx, input.ID)
		if err != nil {
			return nil, err
		}
		return &TargetsOutput{Body: envelopeData{OK: true, Data: t}}, nil
	})

	huma.Post(api, "/targets", func(ctx context.Context, input *struct{ Body TargetBody }) (*TargetsOutput, error) {
		if input.Body.Name == "" {
			return nil, apperr.Validation("name_required", "name is required", nil)
		}
		t := &models.Target{
			ID:             ulid.Make().String(),
			Name:           input.Body.Name,
			PrimaryRole:    input.Body.PrimaryRole,
			Seniority:      input.Body.Seniority,
			Location:       input.Body.Location,
			MustKeywords:   input.Body.Must,
			NiceKeywords:   input.Body.Nice,
			RejectKeywords: input.Body.Reject,
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		}
		if err := deps.Repos.Target.Create(ctx, t); err != nil {
			return nil, err
		}
		return &TargetsOutput{Body: envelopeData{OK: true, Data: t}}, nil
	})

	huma.Post(api, "/targets/{id}", func(ctx context.Context, input *struct {
		TargetIDInput
		Body TargetBody
	}) (*TargetsOutput, error) {
		t, err := deps.Repos.Target.MustGetByID(ctx, input.ID)
		if err != nil {
			return nil, err
		}
		if input.Body.Name != "" {
			t.Name = input.Body.Name
		}
		t.PrimaryRole = input.Body.PrimaryRole
		t.Seniority = input.Body.Seniority
		t.Location = input.Body.Location
		t.MustKeywords = input.Body.Must
		t.NiceKeywords = input.Body.Nice
		t.RejectKeywords = input.Body.Reject
		if err := deps.Repos.Target.Update(ctx, t); err != nil {
			return nil, err
		}
		return &TargetsOutput{Body: envelopeData{OK: true, Data: t}}, nil
	})

	registerTargetExportRoutes(api, deps)
}

// targetYAML is the on-disk shape targets/export round-trips, deliberately
// omitting server-managed fields (id, timestamps) so an exported file is a
// valid import body too.
type targetYAML struct {
	Name        string   `yaml:"name"`
	PrimaryRole string   `yaml:"primary_role"`
	Seniority   string   `yaml:"seniority,omitempty"`
	Location    string   `yaml:"location,omitempty"`
	Must        []string `yaml:"must,omitempty"`
	Nice        []string `yaml:"nice,omitempty"`
	Reject      []string `yaml:"reject,omitempty"`
}

// TargetExportOutput is GET /targets/export's raw YAML body. Supplemented
// per SPEC_FULL.md: lets a user version-control their scoring rubrics.
type TargetExportOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// TargetImportInput is POST /targets/export's body: a YAML document of one
// or more targets, replacing none of the existing rows — each entry is
// created fresh with a new ID.
type TargetImportInput struct {
	RawBody []byte
}

func registerTargetExportRoutes(api huma.API, deps *Deps) {
	huma.Get(api, "/targets/export", func(ctx context.Context, input *struct{}) (*TargetExportOutput, error) {
		targets, err := deps.Repos.Target.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]targetYAML, 0, len(targets))
		for _, t := range targets {
			out = append(out, targetYAML{
				Name: t.Name, PrimaryRole: t.PrimaryRole, Seniority: t.Seniority,
				Location: t.Location, Must: t.MustKeywords, Nice: t.NiceKeywords, Reject: t.RejectKeywords,
			})
		}
		body, err := yaml.Marshal(out)
		if err != nil {
			return nil, apperr.Validation("target_export_failed", "could not marshal targets", err)
		}
		return &TargetExportOutput{ContentType: "application/yaml", Body: body}, nil
	})

	huma.Post(api, "/targets/export", func(ctx context.Context, input *TargetImportInput) (*TargetsOutput, error) {
		var incoming []targetYAML
		if err := yaml.Unmarshal(input.RawBody, &incoming); err != nil {
			return nil, apperr.Validation("target_import_invalid_yaml", "body is not a valid target YAML list", err)
		}

		created := make([]*models.Target, 0, len(incoming))
		for _, ty := range incoming {
			if strings.TrimSpace(ty.Name) == "" {
				continue
			}
			t := &models.Target{
				ID: ulid.Make().String(), Name: ty.Name, PrimaryRole: ty.PrimaryRole,
				Seniority: ty.Seniority, Location: ty.Location,
				MustKeywords: ty.Must, NiceKeywords: ty.Nice, RejectKeywords: ty.Reject,
				CreatedAt: time.Now(), UpdatedAt: time.Now(),
			}
			if err := deps.Repos.Target.Create(ctx, t); err != nil {
				return nil, err
			}
			created = append(created, t)
		}
		return &TargetsOutput{Body: envelopeData{OK: true, Data: created}}, nil
	})
}
