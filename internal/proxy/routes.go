package proxy

import (
	"net/http"
	"net/url"
	"strings"
)

// Route maps one local /apis endpoint and method to one upstream path.
type Route struct {
	Method  string
	Pattern string
	// Upstream is the backend path; {name} segments take the chi URL param.
	Upstream string
	Resource string
	// Fallback is the error message used when the upstream body has none.
	Fallback string
	// StatusMessages replace the upstream message for specific statuses.
	StatusMessages map[int]string
	// DefaultQuery values apply only when the caller did not send the key.
	DefaultQuery [][2]string
	// QueryToPath moves a query parameter into a trailing path segment.
	QueryToPath string
	// SuccessMessage replaces a successful upstream body.
	SuccessMessage string
	// File streams the upstream body unparsed with its headers.
	File    bool
	Reshape func(any) any
}

// Routes is the full /apis proxy table.
func Routes() []Route {
	usersStatus := map[int]string{
		http.StatusForbidden: "You do not have permission to view this user",
		http.StatusNotFound:  "User not found",
	}
	return []Route{
		{Method: http.MethodGet, Pattern: "/exams", Upstream: "/v1/exams", Resource: "exam", Reshape: wrapExams},
		{Method: http.MethodGet, Pattern: "/exams/{id}", Upstream: "/v1/exams/{id}", Resource: "exam"},
		{Method: http.MethodDelete, Pattern: "/exams/{id}", Upstream: "/v1/exams/{id}", Resource: "exam"},
		{Method: http.MethodPatch, Pattern: "/exams/{id}", Upstream: "/v1/exams/{id}", Resource: "exam"},
		{Method: http.MethodDelete, Pattern: "/exams/{id}/qn_papers/{qp_code}/questions/{ques_code}", Upstream: "/v1/exams/{id}/qn_papers/{qp_code}/questions/{ques_code}", Resource: "question"},

		{Method: http.MethodGet, Pattern: "/question-papers", Upstream: "/v1/exams", Resource: "question paper"},
		{Method: http.MethodPost, Pattern: "/question-papers", Upstream: "/v1/exams", Resource: "question paper"},
		{Method: http.MethodGet, Pattern: "/question-papers/{id}", Upstream: "/v1/qn_papers/{id}", Resource: "question paper"},

		{Method: http.MethodGet, Pattern: "/designs", Upstream: "/v1/designs", Resource: "design", Fallback: "Failed to fetch designs",
			DefaultQuery: [][2]string{{"page", "1"}, {"status", "draft"}, {"limit", "20"}, {"page_size", "20"}}},
		{Method: http.MethodPost, Pattern: "/designs", Upstream: "/v1/designs", Resource: "design"},
		{Method: http.MethodDelete, Pattern: "/designs/{design_code}", Upstream: "/v1/designs/{design_code}", Resource: "design", Fallback: "Failed to delete design."},
		{Method: http.MethodPost, Pattern: "/designs/{design_code}/qn_papers/{paper_code}/questions", Upstream: "/v1/designs/{design_code}/qn_papers/{paper_code}/questions", Resource: "question", Fallback: "Failed to add question."},
		{Method: http.MethodDelete, Pattern: "/designs/{design_code}/qn_papers/{paper_code}/questions/{qn_code}", Upstream: "/v1/designs/{design_code}/qn_papers/{paper_code}/questions/{qn_code}", Resource: "question", Fallback: "Failed to delete question."},

		{Method: http.MethodGet, Pattern: "/v2/exams", Upstream: "/v2/exams", Resource: "exam"},
		{Method: http.MethodPost, Pattern: "/v2/exams", Upstream: "/v2/exams", Resource: "exam"},
		{Method: http.MethodGet, Pattern: "/v2/exams/{exam_code}", Upstream: "/v2/exams/{exam_code}", Resource: "exam", Fallback: "Failed to fetch exam details"},
		{Method: http.MethodPut, Pattern: "/v2/exams/{exam_code}", Upstream: "/v2/exams/{exam_code}", Resource: "exam", Fallback: "Failed to add quiz to exam."},
		{Method: http.MethodDelete, Pattern: "/v2/exams/{exam_code}", Upstream: "/v2/exams/{exam_code}", Resource: "exam", Fallback: "Failed to delete exam."},
		{Method: http.MethodPost, Pattern: "/v2/exams/{exam_code}/designs", Upstream: "/v2/exams/{exam_code}/designs", Resource: "design"},
		{Method: http.MethodDelete, Pattern: "/v2/designs/{design_code}", Upstream: "/v2/designs/{design_code}", Resource: "design", Fallback: "Failed to delete design."},
		{Method: http.MethodDelete, Pattern: "/v2/exams/designs/{design_code}", Upstream: "/v2/designs/{design_code}", Resource: "design", Fallback: "Failed to delete design."},

		{Method: http.MethodGet, Pattern: "/organizations", Upstream: "/v1/organizations", Resource: "organization", Fallback: "Failed to fetch organizations",
			DefaultQuery: [][2]string{{"page", "1"}, {"page_size", "50"}, {"include_inactive", "false"}}},
		{Method: http.MethodPost, Pattern: "/organizations", Upstream: "/v1/organizations", Resource: "organization", Fallback: "Failed to create organization"},
		{Method: http.MethodGet, Pattern: "/orgs", Upstream: "/v1/organizations", Resource: "organization"},
		{Method: http.MethodGet, Pattern: "/organizations/{id}", Upstream: "/v1/organizations/{id}", Resource: "organization", Fallback: "Failed to fetch organization"},
		{Method: http.MethodPut, Pattern: "/organizations/{id}", Upstream: "/v1/organizations/{id}", Resource: "organization", Fallback: "Failed to update organization"},
		{Method: http.MethodDelete, Pattern: "/organizations/{id}", Upstream: "/v1/organizations/{id}", Resource: "organization", Fallback: "Failed to delete organization",
			SuccessMessage: "Organization successfully deleted"},

		{Method: http.MethodGet, Pattern: "/users", Upstream: "/v1/users", Resource: "user", Fallback: "Failed to fetch users",
			DefaultQuery: [][2]string{{"page", "1"}, {"per_page", "10"}}},
		{Method: http.MethodPost, Pattern: "/users", Upstream: "/v1/users", Resource: "user", Fallback: "Failed to create user"},
		{Method: http.MethodGet, Pattern: "/users/{id}", Upstream: "/v1/users/{id}", Resource: "user", Fallback: "Failed to fetch user details", StatusMessages: usersStatus},
		{Method: http.MethodPut, Pattern: "/users/{id}", Upstream: "/v1/users/{id}", Resource: "user", Fallback: "Failed to update user",
			StatusMessages: map[int]string{
				http.StatusBadRequest: "Invalid user data provided",
				http.StatusForbidden:  "You do not have permission to update this user",
				http.StatusNotFound:   "User not found",
			}},
		{Method: http.MethodDelete, Pattern: "/users/{id}", Upstream: "/v1/users/{id}", Resource: "user", Fallback: "Failed to deactivate user",
			SuccessMessage: "User successfully deactivated"},
		{Method: http.MethodPatch, Pattern: "/users/{id}/password", Upstream: "/v1/users/{id}/password", Resource: "user", Fallback: "Failed to update password",
			StatusMessages: map[int]string{
				http.StatusBadRequest: "Invalid password format",
				http.StatusForbidden:  "Insufficient permissions to update this password",
				http.StatusNotFound:   "User not found",
			}},

		{Method: http.MethodGet, Pattern: "/schools", Upstream: "/v1/schools", Resource: "school", Fallback: "Failed to fetch schools"},
		{Method: http.MethodPost, Pattern: "/schools", Upstream: "/v1/schools", Resource: "school", Fallback: "Failed to add school."},
		{Method: http.MethodGet, Pattern: "/schools/codes", Upstream: "/v1/schools/codes", Resource: "school", Fallback: "Failed to fetch udise codes"},
		{Method: http.MethodPost, Pattern: "/schools/images", Upstream: "/v1/schools/images", Resource: "school", Fallback: "Failed to upload school images."},
		{Method: http.MethodGet, Pattern: "/schools/{id}", Upstream: "/v1/schools/{id}", Resource: "school", Fallback: "Failed to fetch school details"},
		{Method: http.MethodPut, Pattern: "/schools/{id}", Upstream: "/v1/schools/{id}", Resource: "school", Fallback: "Failed to update school."},
		{Method: http.MethodDelete, Pattern: "/schools/{id}", Upstream: "/v1/schools/{id}", Resource: "school", Fallback: "Failed to delete school.",
			SuccessMessage: "School deleted successfully"},

		{Method: http.MethodGet, Pattern: "/blocks", Upstream: "/v1/blocks", Resource: "region", Fallback: "Failed to fetch blocks"},
		{Method: http.MethodPost, Pattern: "/blocks", Upstream: "/v1/blocks", Resource: "region", Fallback: "Failed to add region."},
		{Method: http.MethodGet, Pattern: "/blocks/{id}", Upstream: "/v1/blocks/{id}", Resource: "region", Fallback: "Failed to fetch region details"},
		{Method: http.MethodPut, Pattern: "/blocks/{id}", Upstream: "/v1/blocks/{id}", Resource: "region", Fallback: "Failed to update region."},
		{Method: http.MethodDelete, Pattern: "/blocks/{id}", Upstream: "/v1/blocks/{id}", Resource: "region", Fallback: "Failed to delete region.",
			SuccessMessage: "Region deleted successfully"},

		{Method: http.MethodGet, Pattern: "/questions", Upstream: "/v1/questions", Resource: "question"},
		{Method: http.MethodGet, Pattern: "/questions/filtered", Upstream: "/v2/questions", Resource: "question", Reshape: unwrapQuestions},
		{Method: http.MethodPost, Pattern: "/questions/bulk-upload", Upstream: "/v1/upload-excel", Resource: "question"},
		{Method: http.MethodGet, Pattern: "/questions/template", Upstream: "/v1/excel-template", Resource: "template", Fallback: "Failed to fetch template", File: true},
		{Method: http.MethodGet, Pattern: "/questions/{id}", Upstream: "/v1/questions/{id}", Resource: "question", Fallback: "Failed to fetch question details."},
		{Method: http.MethodDelete, Pattern: "/questions/{id}", Upstream: "/v1/questions/{id}", Resource: "question", Fallback: "Failed to delete question.",
			SuccessMessage: "Question deleted successfully"},
		{Method: http.MethodDelete, Pattern: "/questions/{id}/images/options", Upstream: "/v1/questions/{id}/images/options", Resource: "image", Fallback: "Failed to delete option image.",
			QueryToPath: "option", SuccessMessage: "Successfully deleted option image."},
		{Method: http.MethodDelete, Pattern: "/questions/{id}/images/questions", Upstream: "/v1/questions/{id}/images", Resource: "image", Fallback: "Failed to delete question image.",
			SuccessMessage: "Successfully deleted question image."},

		{Method: http.MethodGet, Pattern: "/subjects", Upstream: "/v1/subjects", Resource: "subject"},
		{Method: http.MethodPost, Pattern: "/subjects", Upstream: "/v1/subjects", Resource: "subject"},
		{Method: http.MethodGet, Pattern: "/mediums", Upstream: "/v1/mediums", Resource: "medium"},
		{Method: http.MethodGet, Pattern: "/jobs", Upstream: "/v1/jobs", Resource: "job", Fallback: "Failed to fetch job status"},
	}
}

func wrapExams(v any) any {
	return map[string]any{"exams": v}
}

// unwrapQuestions returns the qns list of a filtered question page.
func unwrapQuestions(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return []any{}
	}
	qns, ok := m["qns"]
	if !ok || qns == nil {
		return []any{}
	}
	return qns
}

// upstreamPath fills {name} segments with escaped values from param.
func (rt Route) upstreamPath(param func(string) string) (string, string) {
	var b strings.Builder
	rest := rt.Upstream
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), ""
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			b.WriteString(rest)
			return b.String(), ""
		}
		name := rest[open+1 : open+end]
		value := strings.TrimSpace(param(name))
		if value == "" {
			return "", name
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(value))
		rest = rest[open+end+1:]
	}
}

// query applies defaults and moves QueryToPath into the path. It returns the
// extra path suffix and the outgoing raw query; a query needing neither is
// passed through untouched.
func (rt Route) query(raw string) (string, string) {
	if len(rt.DefaultQuery) == 0 && rt.QueryToPath == "" {
		return "", raw
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return "", raw
	}
	for _, kv := range rt.DefaultQuery {
		if _, ok := q[kv[0]]; !ok {
			q.Set(kv[0], kv[1])
		}
	}
	suffix := ""
	if rt.QueryToPath != "" {
		if v := q.Get(rt.QueryToPath); v != "" {
			suffix = "/" + url.PathEscape(v)
			q.Del(rt.QueryToPath)
		}
	}
	return suffix, q.Encode()
}
