package main

import (
	"context"

	"github.com/baechuer/campus-coord/internal/domain"
)

type resourceUpserter interface {
	UpsertResource(ctx context.Context, r domain.Resource) error
}

type catalogInvalidator interface {
	InvalidateResources(ctx context.Context) error
}

func intp(n int) *int { return &n }

// demoResources is the bookable catalog for local runs.
var demoResources = []domain.Resource{
	{ID: "8f6b1f0e-0c1a-4d5e-9a51-6b1c2f3a0001", Name: "Library Study Room A", Category: "study_room", Capacity: intp(6), Location: "Main Library L2", Active: true},
	{ID: "8f6b1f0e-0c1a-4d5e-9a51-6b1c2f3a0002", Name: "Library Study Room B", Category: "study_room", Capacity: intp(4), Location: "Main Library L2", Active: true},
	{ID: "8f6b1f0e-0c1a-4d5e-9a51-6b1c2f3a0003", Name: "Engineering Lecture Hall", Category: "lecture_hall", Capacity: intp(180), Location: "Engineering Building G01", Active: true},
	{ID: "8f6b1f0e-0c1a-4d5e-9a51-6b1c2f3a0004", Name: "Maker Lab", Category: "lab", Capacity: intp(20), Location: "Innovation Hub L1", Active: true},
	{ID: "8f6b1f0e-0c1a-4d5e-9a51-6b1c2f3a0005", Name: "Portable Projector", Category: "equipment", Location: "IT Service Desk", Active: true},
}

// seedResources upserts the demo catalog and drops any cached copy of it.
// inv may be nil.
func seedResources(ctx context.Context, s resourceUpserter, inv catalogInvalidator) error {
	for _, r := range demoResources {
		if err := s.UpsertResource(ctx, r); err != nil {
			return err
		}
	}
	if inv == nil {
		return nil
	}
	return inv.InvalidateResources(ctx)
}
