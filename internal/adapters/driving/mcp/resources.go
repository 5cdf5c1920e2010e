package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// uriScheme prefixes every groundwork resource URI.
const uriScheme = "groundwork://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "collection",
		Name:        "collection",
		Description: "Configuration and size of the vector collection",
		MIMEType:    "application/json",
	}, s.handleCollectionResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Every ingested document",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "modules/{module}/documents",
		Name:        "module-documents",
		Description: "Documents in one course module",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)
}

type collectionInfo struct {
	Name         string `json:"collection_name"`
	Dimension    int    `json:"vector_dimension"`
	Metric       string `json:"distance_metric"`
	ModelVersion string `json:"embedding_model_version"`
	Entries      int    `json:"entries"`
}

type documentInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	SourcePath string `json:"source_path"`
	Module     string `json:"module,omitempty"`
	Chunks     int    `json:"chunks"`
}

func (s *Server) handleCollectionResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	if s.ports.Ingestion == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	info, err := s.ports.Ingestion.Collection(ctx)
	if err != nil {
		return nil, fmt.Errorf("describing collection: %w", err)
	}
	return jsonResult(req.Params.URI, collectionInfo{
		Name:         info.Config.Name,
		Dimension:    info.Config.Dimension,
		Metric:       string(info.Config.Metric),
		ModelVersion: info.Config.ModelVersion,
		Entries:      info.Entries,
	})
}

// handleDocumentsResource serves both the full list and the per-module list.
func (s *Server) handleDocumentsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	module, filtered, ok := extractModule(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if s.ports.Ingestion == nil {
		return jsonResult(req.Params.URI, []documentInfo{})
	}

	records, err := s.ports.Ingestion.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	infos := make([]documentInfo, 0, len(records))
	for _, r := range records {
		if filtered && r.Module != module {
			continue
		}
		infos = append(infos, documentInfo{
			ID:         r.ID,
			Title:      r.Title,
			SourcePath: r.SourcePath,
			Module:     r.Module,
			Chunks:     r.ChunkCount,
		})
	}
	return jsonResult(req.Params.URI, infos)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractModule parses groundwork://documents and
// groundwork://modules/{module}/documents. filtered is false for the former.
func extractModule(uri string) (module string, filtered, ok bool) {
	if uri == uriScheme+"documents" {
		return "", false, true
	}

	const prefix = uriScheme + "modules/"
	const suffix = "/documents"
	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return "", false, false
	}
	escaped := strings.TrimSuffix(strings.TrimPrefix(uri, prefix), suffix)
	module, err := url.PathUnescape(escaped)
	if err != nil || module == "" {
		return "", false, false
	}
	return module, true, true
}
