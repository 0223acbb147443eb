// Package server wires the students API: routes, middleware and the
// metrics endpoint.
package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aanand-mishra/students-console/internal/http/handlers/student"
	"github.com/aanand-mishra/students-console/internal/http/middleware"
	"github.com/aanand-mishra/students-console/internal/storage"
)

// NewRouter registers every route of the students resource.
//
// Route table:
//
//	POST   /api/students                     → create a student
//	GET    /api/students                     → list all students
//	GET    /api/students/search?name=        → name substring search
//	GET    /api/students/age-range           → filter by minAge/maxAge
//	GET    /api/students/older-than?minAge=  → age ≥ minAge
//	GET    /api/students/count/age-range     → count by minAge/maxAge
//	GET    /api/students/email/{email}       → get one student by email
//	GET    /api/students/{id}                → get one student by ID
//	PUT    /api/students/{id}                → update a student
//	DELETE /api/students/{id}                → delete a student
//	GET    /metrics                          → Prometheus metrics
//
// The literal segments (search, age-range, ...) are more specific than
// {id}, so Go's ServeMux prefers them regardless of registration order.
func NewRouter(store storage.Storage, logger *slog.Logger, reg *prometheus.Registry) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("POST /api/students", student.New(store))
	router.HandleFunc("GET /api/students", student.GetList(store))
	router.HandleFunc("GET /api/students/search", student.Search(store))
	router.HandleFunc("GET /api/students/age-range", student.AgeRange(store))
	router.HandleFunc("GET /api/students/older-than", student.OlderThan(store))
	router.HandleFunc("GET /api/students/count/age-range", student.CountByAgeRange(store))
	router.HandleFunc("GET /api/students/email/{email}", student.GetByEmail(store))
	router.HandleFunc("GET /api/students/{id}", student.GetByID(store))
	router.HandleFunc("PUT /api/students/{id}", student.Update(store))
	router.HandleFunc("DELETE /api/students/{id}", student.Delete(store))

	router.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Outermost first: every request gets an id, then CORS, logging and
	// metrics see the final status code.
	var handler http.Handler = router
	handler = middleware.Metrics("students_api", reg)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.RequestID(handler)

	return handler
}
