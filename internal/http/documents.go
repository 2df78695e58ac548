package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nexus-support-service/internal/apperrors"
	"nexus-support-service/internal/service/document"
)

type suggestResponseRequest struct {
	CustomerQuery      string   `json:"customer_query"`
	ContextDocsContent []string `json:"context_docs_content"`
}

// documentID reads and checks the :doc_id path parameter.
func documentID(c *gin.Context) (string, bool) {
	id := c.Param("doc_id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(c, apperrors.InvalidInput("doc_id", "document id must be a UUID"))
		return "", false
	}
	return id, true
}

func (a *API) handleCreateDocument(c *gin.Context) {
	var req document.CreateRequest
	if !bindJSON(c, &req) {
		return
	}
	doc, err := a.documents.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (a *API) handleListDocuments(c *gin.Context) {
	var req document.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, apperrors.InvalidInput("query", "skip and limit must be integers").WithCause(err))
		return
	}
	docs, err := a.documents.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (a *API) handleGetDocument(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	doc, err := a.documents.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (a *API) handleUpdateDocument(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	var req document.UpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	doc, err := a.documents.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (a *API) handleDeleteDocument(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	if err := a.documents.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleSearchDocuments(c *gin.Context) {
	var req document.SearchRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := a.documents.Search(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *API) handleSummarizeText(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, bodyError(err))
		return
	}
	summary, err := a.documents.SummarizeText(c.Request.Context(), string(body))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (a *API) handleSuggestResponse(c *gin.Context) {
	var req suggestResponseRequest
	if !bindJSON(c, &req) {
		return
	}
	suggestion, err := a.documents.SuggestResponse(c.Request.Context(), req.CustomerQuery, req.ContextDocsContent)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}

func (a *API) handleSummarizeDocument(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	summary, err := a.documents.Summarize(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
