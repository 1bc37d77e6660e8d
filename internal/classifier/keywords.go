package classifier

import "github.com/mkarlsen/switchboard/pkg/models"

// FallbackSpecialist handles unclassified problems.
const FallbackSpecialist models.SpecialistID = "general-specialist"

// MetaSpecialist receives accumulated results for synthesis in a meta
// dispatch.
const MetaSpecialist models.SpecialistID = "meta-specialist"

// seedConfidence is the starting confidence of built-in patterns. High
// enough that a solid keyword overlap qualifies on its own; outcomes adjust
// it from there.
const seedConfidence = 0.9

// DefaultPatterns returns the built-in domain patterns. Keyword and trigger
// sets are starting points; confidence adjusts as outcomes are recorded.
func DefaultPatterns() []*models.DomainPattern {
	return []*models.DomainPattern{
		{
			ID:           "testing",
			SpecialistID: "test-specialist",
			Keywords: []string{
				"test", "tests", "testing", "mock", "mocks", "async",
				"assertion", "coverage", "flaky", "fixture",
			},
			Triggers: []string{
				"test failures", "failing tests", "mock configuration",
			},
			Confidence: seedConfidence,
		},
		{
			ID:           "database",
			SpecialistID: "db-specialist",
			Keywords: []string{
				"database", "schema", "migration", "query", "sql",
				"index", "transaction", "deadlock", "postgres", "sqlite",
			},
			Triggers: []string{
				"slow query", "database migration", "schema change",
			},
			Confidence: seedConfidence,
		},
		{
			ID:           "security",
			SpecialistID: "security-specialist",
			Keywords: []string{
				"security", "auth", "authentication", "authorization",
				"vulnerability", "encryption", "token", "csrf", "injection",
			},
			Triggers: []string{
				"security audit", "auth flow", "access control",
			},
			Confidence: seedConfidence,
		},
		{
			ID:           "performance",
			SpecialistID: "perf-specialist",
			Keywords: []string{
				"performance", "latency", "slow", "memory", "cpu",
				"profiling", "throughput", "bottleneck", "leak",
			},
			Triggers: []string{
				"memory leak", "high latency", "cpu spike",
			},
			Confidence: seedConfidence,
		},
		{
			ID:           "frontend",
			SpecialistID: "frontend-specialist",
			Keywords: []string{
				"ui", "css", "layout", "render", "component", "browser",
				"dom", "styling", "responsive",
			},
			Triggers: []string{
				"layout shift", "render glitch",
			},
			Confidence: seedConfidence,
		},
		{
			ID:           "backend",
			SpecialistID: "backend-specialist",
			Keywords: []string{
				"api", "endpoint", "server", "handler", "middleware",
				"grpc", "rest", "service", "route",
			},
			Triggers: []string{
				"api endpoint", "request handler",
			},
			Confidence: seedConfidence,
		},
		{
			ID:           "docs",
			SpecialistID: "docs-specialist",
			Keywords: []string{
				"docs", "documentation", "readme", "changelog",
				"tutorial", "guide",
			},
			Triggers: []string{
				"update the docs",
			},
			Confidence: seedConfidence,
		},
		{
			ID:           "infrastructure",
			SpecialistID: "infra-specialist",
			Keywords: []string{
				"deploy", "deployment", "docker", "kubernetes",
				"terraform", "pipeline", "ci", "infra", "provisioning",
			},
			Triggers: []string{
				"deployment pipeline", "ci failure",
			},
			Confidence: seedConfidence,
		},
	}
}
