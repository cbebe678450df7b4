package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"call-insights-go/internal/aggregator"
	"call-insights-go/internal/dataset"
	"call-insights-go/internal/store"
	"call-insights-go/internal/types"
)

const (
	defaultLimit = 100
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var allowedAudio = map[string]bool{".wav": true, ".mp3": true}

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

func (api *API) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := api.calls.Ping(ctx); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// upload streams the multipart "file" part straight to the processor.
func (api *API) upload(c *gin.Context) {
	if api.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, api.maxUpload)
	}
	mr, err := c.Request.MultipartReader()
	if err != nil {
		detail(c, http.StatusBadRequest, "Expected a multipart/form-data body.")
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			api.uploadError(c, err)
			return
		}
		if part.FormName() != "file" || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		name := part.FileName()
		if !allowedAudio[strings.ToLower(filepath.Ext(name))] {
			api.metrics.Uploads.WithLabelValues("rejected").Inc()
			detail(c, http.StatusBadRequest, "Invalid file type. Only WAV or MP3 allowed.")
			return
		}

		rec, err := api.uploads.ProcessUpload(c.Request.Context(), name, part)
		if err != nil {
			api.uploadError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
		return
	}

	detail(c, http.StatusBadRequest, "No file uploaded.")
}

func (api *API) uploadError(c *gin.Context, err error) {
	_ = c.Error(err)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		api.metrics.Uploads.WithLabelValues("rejected").Inc()
		detail(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds the %d byte upload limit.", tooLarge.Limit))
		return
	}
	detail(c, http.StatusInternalServerError, err.Error())
}

func (api *API) listCalls(c *gin.Context) {
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(c, "limit", defaultLimit)
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := api.selectCalls(c)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, page(recs, skip, limit))
}

// selectCalls loads every call, newest first, filtered by the optional ?tag=.
// On error it has already written the response.
func (api *API) selectCalls(c *gin.Context) ([]types.CallRecord, error) {
	recs, err := api.calls.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		detail(c, http.StatusInternalServerError, err.Error())
		return nil, err
	}
	sortNewestFirst(recs)

	tag := c.Query("tag")
	if tag == "" {
		return recs, nil
	}
	out := make([]types.CallRecord, 0, len(recs))
	for i := range recs {
		if recs[i].HasTag(tag) {
			out = append(out, recs[i])
		}
	}
	return out, nil
}

func sortNewestFirst(recs []types.CallRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i].UploadTimestamp, recs[j].UploadTimestamp
		if !a.Equal(b) {
			return a.After(b)
		}
		return recs[i].ID > recs[j].ID
	})
}

func page(recs []types.CallRecord, skip, limit int) []types.CallRecord {
	if skip >= len(recs) {
		return []types.CallRecord{}
	}
	recs = recs[skip:]
	if limit < len(recs) {
		recs = recs[:limit]
	}
	return recs
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

// callID parses :id and writes a 400 when it is not a positive integer.
func callID(c *gin.Context) (uint, bool) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || n == 0 {
		detail(c, http.StatusBadRequest, "Call id must be a positive integer.")
		return 0, false
	}
	return uint(n), true
}

func (api *API) findCall(c *gin.Context) (*types.CallRecord, bool) {
	id, ok := callID(c)
	if !ok {
		return nil, false
	}
	rec, err := api.calls.Get(c.Request.Context(), id)
	if err != nil {
		api.storeError(c, err)
		return nil, false
	}
	return rec, true
}

func (api *API) storeError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		detail(c, http.StatusNotFound, "Call not found")
		return
	}
	_ = c.Error(err)
	detail(c, http.StatusInternalServerError, err.Error())
}

func (api *API) getCall(c *gin.Context) {
	rec, ok := api.findCall(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rec)
}

type tagUpdate struct {
	CustomTags      *[]string `json:"custom_tags"`
	CustomTagsCamel *[]string `json:"customTags"`
}

func (api *API) updateTags(c *gin.Context) {
	id, ok := callID(c)
	if !ok {
		return
	}
	var body tagUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusBadRequest, "Body must be JSON like {\"custom_tags\": [\"...\"]}.")
		return
	}
	tags := body.CustomTags
	if tags == nil {
		tags = body.CustomTagsCamel
	}
	if tags == nil {
		detail(c, http.StatusBadRequest, "custom_tags is required.")
		return
	}

	cleaned := cleanTags(*tags)
	rec, err := api.calls.Update(c.Request.Context(), id, store.Fields{CustomTags: &cleaned})
	if err != nil {
		api.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// cleanTags trims each tag and drops blanks (JSON nulls decode as "") and repeats.
func cleanTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (api *API) exportCall(c *gin.Context) {
	rec, ok := api.findCall(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=call_%d_export.json", rec.ID))
	c.JSON(http.StatusOK, rec.Export())
}

func (api *API) exportWorkbook(c *gin.Context) {
	recs, err := api.selectCalls(c)
	if err != nil {
		return
	}
	var buf bytes.Buffer
	if err := dataset.WriteWorkbook(&buf, recs); err != nil {
		_ = c.Error(err)
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Header("Content-Disposition", "attachment; filename=calls_export.xlsx")
	c.Data(http.StatusOK, xlsxMIME, buf.Bytes())
}

func (api *API) analytics(c *gin.Context) {
	recs, err := api.calls.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, aggregator.Aggregate(recs))
}
