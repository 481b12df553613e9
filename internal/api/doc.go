// Package api hosts the HTTP server that renders documents on demand.
// Notable routes:
//   - GET / renders the root document; GET /page?id=<id> renders any document.
//   - GET /static/* (and /api/static/*) serves the static asset tree.
//   - POST /v1/builds runs a full build.
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
package api
