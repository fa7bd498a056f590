package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"time"
)

const (
	NeighborsFromStudentMatrix = "student"
	NeighborsFromUserMatrix    = "user"
)

type RecommenderConfig struct {
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
}

type SimilarityConfig struct {
	TTL                   time.Duration `mapstructure:"ttl" validate:"gt=0"`
	FeatureThreshold      float64       `mapstructure:"feature_threshold" validate:"gte=0,lt=1"`
	FeatureTopK           int           `mapstructure:"feature_top_k" validate:"gte=1"`
	BehaviorThreshold     float64       `mapstructure:"behavior_threshold" validate:"gte=0,lt=1"`
	BehaviorTopK          int           `mapstructure:"behavior_top_k" validate:"gte=1"`
	RecentWindow          int           `mapstructure:"recent_window" validate:"gte=1"`
	Workers               int           `mapstructure:"workers" validate:"gte=1,lte=64"`
	SubjectTimeout        time.Duration `mapstructure:"subject_timeout" validate:"gt=0"`
	RunTimeout            time.Duration `mapstructure:"run_timeout" validate:"gt=0"`
	StoreOpsPerSecond     float64       `mapstructure:"store_ops_per_second" validate:"gte=0"`
	UserMatrixEnabled     bool          `mapstructure:"user_matrix_enabled"`
	MaxConcurrentMatrices int64         `mapstructure:"max_concurrent_matrices" validate:"gte=1"`
}

type ScoringConfig struct {
	ResourceLimit    int           `mapstructure:"resource_limit" validate:"gte=1"`
	StudentLimit     int           `mapstructure:"student_limit" validate:"gte=1"`
	ApplicationBonus float64       `mapstructure:"application_bonus" validate:"gte=0,lte=0.5"`
	CatalogCacheTTL  time.Duration `mapstructure:"catalog_cache_ttl" validate:"gte=0"`
	StudentNeighbors string        `mapstructure:"student_neighbors" validate:"oneof=student user"`
}

// DefaultRecommenderConfig returns the reference values.
func DefaultRecommenderConfig() RecommenderConfig {
	return RecommenderConfig{
		Similarity: SimilarityConfig{
			TTL:                   90000 * time.Second,
			FeatureThreshold:      0.05,
			FeatureTopK:           20,
			BehaviorThreshold:     0.1,
			BehaviorTopK:          10,
			RecentWindow:          50,
			Workers:               4,
			SubjectTimeout:        10 * time.Second,
			RunTimeout:            30 * time.Minute,
			StoreOpsPerSecond:     0,
			UserMatrixEnabled:     true,
			MaxConcurrentMatrices: 1,
		},
		Scoring: ScoringConfig{
			ResourceLimit:    5,
			StudentLimit:     5,
			ApplicationBonus: 0.12,
			CatalogCacheTTL:  time.Minute,
			StudentNeighbors: NeighborsFromStudentMatrix,
		},
	}
}

func (config RecommenderConfig) setDefaults() {
	d := DefaultRecommenderConfig()

	viper.SetDefault("recommender.similarity.ttl", d.Similarity.TTL)
	viper.SetDefault("recommender.similarity.feature_threshold", d.Similarity.FeatureThreshold)
	viper.SetDefault("recommender.similarity.feature_top_k", d.Similarity.FeatureTopK)
	viper.SetDefault("recommender.similarity.behavior_threshold", d.Similarity.BehaviorThreshold)
	viper.SetDefault("recommender.similarity.behavior_top_k", d.Similarity.BehaviorTopK)
	viper.SetDefault("recommender.similarity.recent_window", d.Similarity.RecentWindow)
	viper.SetDefault("recommender.similarity.workers", d.Similarity.Workers)
	viper.SetDefault("recommender.similarity.subject_timeout", d.Similarity.SubjectTimeout)
	viper.SetDefault("recommender.similarity.run_timeout", d.Similarity.RunTimeout)
	viper.SetDefault("recommender.similarity.store_ops_per_second", d.Similarity.StoreOpsPerSecond)
	viper.SetDefault("recommender.similarity.user_matrix_enabled", d.Similarity.UserMatrixEnabled)
	viper.SetDefault("recommender.similarity.max_concurrent_matrices", d.Similarity.MaxConcurrentMatrices)

	viper.SetDefault("recommender.scoring.resource_limit", d.Scoring.ResourceLimit)
	viper.SetDefault("recommender.scoring.student_limit", d.Scoring.StudentLimit)
	viper.SetDefault("recommender.scoring.application_bonus", d.Scoring.ApplicationBonus)
	viper.SetDefault("recommender.scoring.catalog_cache_ttl", d.Scoring.CatalogCacheTTL)
	viper.SetDefault("recommender.scoring.student_neighbors", d.Scoring.StudentNeighbors)
}

func (config RecommenderConfig) validate() error {
	return validator.New().Struct(config)
}
