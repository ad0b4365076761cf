package api

import (
	"net/http"

	"github.com/webmproject/presubmit/internal/diff"
	"github.com/webmproject/presubmit/internal/model"
	"github.com/webmproject/presubmit/internal/presubmit"
	"github.com/webmproject/presubmit/internal/report"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type gateRequest struct {
	Diff    string `json:"diff"`
	RepoDir string `json:"repo_dir,omitempty"`
}

// handleGate runs one gate's battery over the posted diff. A failing verdict
// is still a 200; only unusable input is a client error.
func (s *Server) handleGate(gate model.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gateRequest
		if err := readJSON(r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
			return
		}
		if req.Diff == "" {
			s.writeError(w, http.StatusBadRequest, "diff is required")
			return
		}

		dir := s.repoDir(req.RepoDir)
		run, err := s.runner(dir, nil)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		v, err := run.Run(r.Context(), gate, patchSource(req.Diff, dir))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, report.NewJSONVerdict(v))
	}
}

type parseRequest struct {
	Diff string `json:"diff"`
}

type parseResponse struct {
	Files []fileJSON    `json:"files"`
	Stats diffStatsJSON `json:"stats"`
}

type fileJSON struct {
	Name         string `json:"name"`
	OldName      string `json:"old_name,omitempty"`
	Status       string `json:"status"`
	Binary       bool   `json:"binary,omitempty"`
	Source       bool   `json:"source"`
	Skipped      bool   `json:"skipped,omitempty"`
	AddedLines   int    `json:"added_lines"`
	DeletedLines int    `json:"deleted_lines"`
}

type diffStatsJSON struct {
	Files   int `json:"files"`
	Added   int `json:"added"`
	Deleted int `json:"deleted"`
}

// handleParse reports each file's status and whether the gates skip it or
// lint it as a native source.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Diff == "" {
		s.writeError(w, http.StatusBadRequest, "diff is required")
		return
	}

	cs, err := diff.Parse(req.Diff)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rule, err := s.cfg.SourceRule()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	skip, err := s.cfg.SkipPatterns()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	nFiles, added, deleted := cs.Stats()
	resp := parseResponse{
		Files: []fileJSON{},
		Stats: diffStatsJSON{Files: nFiles, Added: added, Deleted: deleted},
	}
	for _, f := range cs.Files {
		skipped := presubmit.Skipped(f.Path(), skip)
		fj := fileJSON{
			Name:         f.Path(),
			Status:       f.Status().String(),
			Binary:       f.IsBinary,
			Source:       !f.IsDeleted && !skipped && rule.Match(f.Path()),
			Skipped:      skipped,
			AddedLines:   f.AddedLines,
			DeletedLines: f.DeletedLines,
		}
		if f.IsRenamed {
			fj.OldName = f.OldName
		}
		resp.Files = append(resp.Files, fj)
	}
	s.writeJSON(w, http.StatusOK, resp)
}
