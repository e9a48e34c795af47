package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"
)

// SchemaClient defines the interface for Weaviate schema operations
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
	DeleteClass(ctx context.Context, className string) error
}

// CandidateProperties are the payload fields written for each candidate object.
func CandidateProperties() []*models.Property {
	return []*models.Property{
		{
			Name:     "candidateId",
			DataType: []string{"int"},
		},
		{
			Name:     "name",
			DataType: []string{"text"},
		},
		{
			Name:     "textContent",
			DataType: []string{"text"},
		},
		{
			Name:     "updatedAt",
			DataType: []string{"string"}, // kept verbatim, not parsed as a date
		},
	}
}

// EnsureSchema creates the candidate class when absent and backfills missing properties.
// The distance only applies at creation; an existing class keeps its metric.
func EnsureSchema(ctx context.Context, client SchemaClient, className string, distance Distance) error {
	exists, err := client.ClassExists(ctx, className)
	if err != nil {
		return err
	}

	properties := CandidateProperties()

	if !exists {
		class := &models.Class{
			Class:       className,
			Description: "An indexed candidate profile",
			Vectorizer:  "none",
			VectorIndexConfig: map[string]interface{}{
				"distance": distance.WeaviateName(),
			},
			Properties: properties,
		}
		return client.CreateClass(ctx, class)
	}

	class, err := client.GetClass(ctx, className)
	if err != nil {
		return err
	}

	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, className, p); err != nil {
				return err
			}
		}
	}

	return nil
}
