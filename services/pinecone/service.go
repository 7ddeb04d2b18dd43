package pinecone

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"counsellor/models"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/tmc/langchaingo/embeddings"
	"google.golang.org/protobuf/types/known/structpb"
)

const upsertBatchSize = 32

type Service struct {
	client    *pinecone.Client
	embedder  embeddings.Embedder
	indexName string
	namespace string

	mu   sync.Mutex
	conn *pinecone.IndexConnection
}

func NewService(apiKey, indexName, namespace string, embedder embeddings.Embedder) (*Service, error) {
	log.Printf("[INFO] Initializing Pinecone service for index %s", indexName)

	pc, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}

	service := &Service{
		client:    pc,
		embedder:  embedder,
		indexName: indexName,
		namespace: namespace,
	}

	log.Printf("[INFO] Pinecone service initialized successfully")
	return service, nil
}

func (s *Service) indexConnection(ctx context.Context) (*pinecone.IndexConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.conn, nil
	}

	idxDesc, err := s.client.DescribeIndex(ctx, s.indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index: %w", err)
	}

	idxConn, err := s.client.Index(pinecone.NewIndexConnParams{
		Host:      idxDesc.Host,
		Namespace: s.namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection: %w", err)
	}

	s.conn = idxConn
	return idxConn, nil
}

// SearchUniversities embeds the query and returns the k nearest universities.
// Pinecone reports cosine similarity; it is turned into a distance as
// 1 - score so lower means closer.
func (s *Service) SearchUniversities(ctx context.Context, query string, k int, filter models.SearchFilter) ([]models.UniversityMatch, error) {
	log.Printf("[INFO] Starting university search with k=%d country=%q", k, filter.Country)

	if k <= 0 {
		return []models.UniversityMatch{}, nil
	}

	queryEmbedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	idxConn, err := s.indexConnection(ctx)
	if err != nil {
		return nil, err
	}

	request := &pinecone.QueryByVectorValuesRequest{
		Vector:          queryEmbedding,
		TopK:            uint32(k),
		IncludeValues:   false,
		IncludeMetadata: true,
	}

	if filter.Country != "" {
		filterStruct, err := structpb.NewStruct(map[string]any{
			"country": map[string]any{
				"$eq": filter.Country,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create filter struct: %w", err)
		}
		request.MetadataFilter = filterStruct
	}

	result, err := idxConn.QueryByVectorValues(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to query universities: %w", err)
	}

	matches := make([]models.UniversityMatch, 0, len(result.Matches))
	for _, match := range result.Matches {
		if match == nil || match.Vector == nil {
			continue
		}

		var metadata map[string]any
		if match.Vector.Metadata != nil {
			metadata = match.Vector.Metadata.AsMap()
		}

		matches = append(matches, models.UniversityMatch{
			University: universityFromMetadata(match.Vector.Id, metadata),
			Distance:   1 - float64(match.Score),
		})
	}

	log.Printf("[INFO] University search returned %d matches", len(matches))
	return matches, nil
}

// UpsertUniversities embeds each university summary and writes it to the
// index in batches.
func (s *Service) UpsertUniversities(ctx context.Context, universities []*models.University) (int, error) {
	if len(universities) == 0 {
		return 0, nil
	}

	texts := make([]string, 0, len(universities))
	for _, university := range universities {
		texts = append(texts, SummaryText(university))
	}

	vectorsValues, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectorsValues) != len(universities) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d universities", len(vectorsValues), len(universities))
	}

	vectors := make([]*pinecone.Vector, 0, len(universities))
	for i, university := range universities {
		metadataStruct, err := structpb.NewStruct(universityMetadata(university))
		if err != nil {
			return 0, fmt.Errorf("failed to create metadata struct for university %s: %w", university.UniversityID, err)
		}

		vectors = append(vectors, &pinecone.Vector{
			Id:       university.UniversityID,
			Values:   &vectorsValues[i],
			Metadata: metadataStruct,
		})
	}

	idxConn, err := s.indexConnection(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for i := 0; i < len(vectors); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(vectors))

		count, err := idxConn.UpsertVectors(ctx, vectors[i:end])
		if err != nil {
			return total, fmt.Errorf("failed to upsert vector batch: %w", err)
		}
		total += int(count)
		log.Printf("[INFO] Successfully upserted %d vectors (batch %d)", count, i/upsertBatchSize+1)
	}

	return total, nil
}

// EnsureIndex creates the serverless cosine index when it does not exist and
// waits until it is ready.
func (s *Service) EnsureIndex(ctx context.Context, dimension int32) error {
	indexes, err := s.client.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}

	for _, idx := range indexes {
		if idx.Name == s.indexName {
			log.Printf("[INFO] Index %s already exists", s.indexName)
			return nil
		}
	}

	log.Printf("[INFO] Creating Pinecone index: %s (dimension %d)", s.indexName, dimension)
	deletionProtection := pinecone.DeletionProtectionDisabled
	metric := pinecone.Cosine

	_, err = s.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:               s.indexName,
		Dimension:          &dimension,
		Metric:             &metric,
		Cloud:              pinecone.Aws,
		Region:             "us-east-1",
		DeletionProtection: &deletionProtection,
		Tags:               &pinecone.IndexTags{"project": "counsellor-universities"},
	})
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	for {
		idx, err := s.client.DescribeIndex(ctx, s.indexName)
		if err != nil {
			return fmt.Errorf("failed to describe index: %w", err)
		}
		if idx.Status != nil && idx.Status.Ready {
			log.Printf("[INFO] Index %s is ready", s.indexName)
			return nil
		}

		log.Printf("[INFO] Waiting for index %s to be ready...", s.indexName)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Second):
		}
	}
}

// SummaryText is the compact description embedded for each university.
func SummaryText(u *models.University) string {
	strengths := u.ProgramStrengths
	if runes := []rune(strengths); len(runes) > 300 {
		strengths = string(runes[:300])
	}

	lines := []string{
		fmt.Sprintf("%s (%s, %s)", u.Name, u.City, u.Country),
		"Ranking: " + u.GlobalRankingBand,
		"Strengths: " + strengths,
		"Tuition: " + formatUSD(u.AvgAnnualTuitionUSD),
		"Cost of living: " + formatUSD(u.CostOfLivingUSD),
		"Competition: " + u.CompetitionLevel,
		"Visa risk: " + u.VisaRiskLevel,
		"Ideal GPA: " + u.ReqGPARange,
	}
	return strings.Join(lines, "\n")
}

func formatUSD(amount *float64) string {
	if amount == nil {
		return "unknown"
	}
	return fmt.Sprintf("$%.0f per year", *amount)
}

func universityMetadata(u *models.University) map[string]any {
	metadata := map[string]any{
		"name":                     u.Name,
		"country":                  u.Country,
		"city":                     u.City,
		"global_ranking_band":      u.GlobalRankingBand,
		"competition_level":        u.CompetitionLevel,
		"visa_risk_level":          u.VisaRiskLevel,
		"budget_category":          u.BudgetCategory,
		"requirement_profile_code": u.RequirementProfileCode,
	}
	if u.TotalAnnualCostUSD != nil {
		metadata["total_annual_cost_usd"] = *u.TotalAnnualCostUSD
	}
	return metadata
}

func universityFromMetadata(id string, metadata map[string]any) models.University {
	str := func(key string) string {
		v, _ := metadata[key].(string)
		return v
	}

	university := models.University{
		UniversityID:           id,
		Name:                   str("name"),
		Country:                str("country"),
		City:                   str("city"),
		GlobalRankingBand:      str("global_ranking_band"),
		CompetitionLevel:       str("competition_level"),
		VisaRiskLevel:          str("visa_risk_level"),
		BudgetCategory:         str("budget_category"),
		RequirementProfileCode: str("requirement_profile_code"),
	}
	if cost, ok := metadata["total_annual_cost_usd"].(float64); ok {
		university.TotalAnnualCostUSD = &cost
	}
	return university
}
