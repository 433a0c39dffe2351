package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
)

// GET /users?limit=&offset=
func ListUsersHandler(users *auth.UserStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := users.List(r.Context(),
			parseIntDefault(r.URL.Query().Get("limit"), 50),
			parseIntDefault(r.URL.Query().Get("offset"), 0))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// POST /users/bulk
// Body is a JSON array, or a multipart "file" holding JSON or CSV with
// columns username,role[,password][,id].
func BulkUpsertUsersHandler(users *auth.UserStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []auth.UserInput
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "file required", http.StatusBadRequest)
				return
			}
			defer f.Close()
			body, err := io.ReadAll(io.LimitReader(f, 4<<20))
			if err != nil {
				http.Error(w, "read file", http.StatusBadRequest)
				return
			}
			trimmed := strings.TrimSpace(string(body))
			if strings.HasPrefix(trimmed, "[") {
				err = json.Unmarshal(body, &rows)
			} else {
				rows, err = parseUsersCSV(strings.NewReader(trimmed))
			}
			if err != nil {
				http.Error(w, "bad file: "+err.Error(), http.StatusBadRequest)
				return
			}
		} else if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			http.Error(w, "expected JSON array or multipart file", http.StatusBadRequest)
			return
		}

		ins, upd, err := users.BulkUpsert(r.Context(), rows)
		if err != nil {
			// row-level problems are the caller's; BulkUpsert rolled back
			log.Warn("bulk user import rejected", "rows", len(rows), "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		respondJSON(w, http.StatusOK, map[string]int{"inserted": ins, "updated": upd})
	}
}

func parseUsersCSV(r io.Reader) ([]auth.UserInput, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx["username"]; !ok {
		return nil, errors.New("missing column: username")
	}
	col := func(rec []string, name string) string {
		if i, ok := idx[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	var rows []auth.UserInput
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, auth.UserInput{
			ID:       col(rec, "id"),
			Username: col(rec, "username"),
			Role:     col(rec, "role"),
			Password: col(rec, "password"),
		})
	}
	return rows, nil
}
