package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quizzy_solve_duration_seconds",
			Help:    "Full pipeline duration per quiz image",
			Buckets: []float64{1, 2, 5, 10, 20, 40, 60},
		},
	)

	SolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizzy_solve_total",
			Help: "Solve requests by outcome",
		},
		[]string{"status"},
	)

	QuestionsExtracted = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quizzy_questions_extracted",
			Help:    "Questions extracted per image",
			Buckets: []float64{1, 2, 3, 5, 8, 12, 20},
		},
	)

	RetrievalMethod = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizzy_retrieval_method_total",
			Help: "Per-question retrieval outcomes by method",
		},
		[]string{"method"},
	)

	CorpusChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quizzy_corpus_chunks",
			Help: "Chunks in the loaded corpus",
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizzy_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)
)

func Init() {
	prometheus.MustRegister(SolveDuration)
	prometheus.MustRegister(SolveTotal)
	prometheus.MustRegister(QuestionsExtracted)
	prometheus.MustRegister(RetrievalMethod)
	prometheus.MustRegister(CorpusChunks)
	prometheus.MustRegister(LLMTokensUsed)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
