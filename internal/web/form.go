package web

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"bcd-backend/internal/core"

	"github.com/go-chi/chi/v5"
)

//go:embed templates/index.html
var templates embed.FS

const pageTitle = "Breast Cancer Prediction (PCA + Logistic Regression)"

// FormHandler serves the interactive entry point: a single page with one
// numeric input per feature that classifies the submitted sample in place.
type FormHandler struct {
	pipeline *core.Pipeline
	tmpl     *template.Template
}

type formField struct {
	Name  string
	Value string
}

type formResult struct {
	Style   string
	Message string
}

type formPage struct {
	Title  string
	Fields []formField
	Result *formResult
}

func NewFormHandler(pipeline *core.Pipeline) *FormHandler {
	tmpl := template.Must(template.ParseFS(templates, "templates/index.html"))
	return &FormHandler{pipeline: pipeline, tmpl: tmpl}
}

func (h *FormHandler) AddRoutes(r chi.Router) {
	r.Get("/", h.ShowForm)
	r.Post("/", h.SubmitForm)
}

func (h *FormHandler) ShowForm(w http.ResponseWriter, r *http.Request) {
	fields := make([]formField, 0, core.NumFeatures())
	for _, name := range core.FeatureNames() {
		fields = append(fields, formField{Name: name, Value: "0.0"})
	}

	h.render(w, formPage{Title: pageTitle, Fields: fields})
}

func (h *FormHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "unable to parse form", http.StatusBadRequest)
		return
	}

	page := formPage{Title: pageTitle}

	inputs := make(map[string]float64, core.NumFeatures())
	for _, name := range core.FeatureNames() {
		raw := r.PostFormValue(name)
		page.Fields = append(page.Fields, formField{Name: name, Value: raw})

		value, err := strconv.ParseFloat(raw, 64)
		if err != nil && page.Result == nil {
			page.Result = &formResult{Style: "alert", Message: fmt.Sprintf("Invalid value for %s", name)}
		}
		inputs[name] = value
	}
	if page.Result != nil {
		h.render(w, page)
		return
	}

	frame, err := core.FrameFromInputs(inputs)
	if err != nil {
		page.Result = &formResult{Style: "alert", Message: "Invalid sample submitted"}
		h.render(w, page)
		return
	}

	result, err := h.pipeline.Classify(frame)
	if err != nil {
		slog.Error("error classifying form sample", "error", err)
		http.Error(w, "error classifying sample", http.StatusInternalServerError)
		return
	}

	style := "alert"
	if result.Class == h.pipeline.Classes[1] {
		style = "success"
	}
	page.Result = &formResult{
		Style:   style,
		Message: fmt.Sprintf("Prediction: %s (%.2f)", strings.ToUpper(result.Diagnosis), result.Probability),
	}

	h.render(w, page)
}

func (h *FormHandler) render(w http.ResponseWriter, page formPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, page); err != nil {
		slog.Error("error rendering form template", "error", err)
	}
}
