package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/askbot/internal/lang"
	"github.com/kalambet/askbot/internal/storage"
)

// Messages are the fixed interface strings shown alongside a listing.
type Messages struct {
	Welcome     string `json:"welcome_message"`
	Select      string `json:"select_prompt"`
	NoResponses string `json:"no_responses"`
	Loading     string `json:"loading"`
}

var browseMessages = map[lang.Code]Messages{
	lang.FR: {
		Welcome:     "Bonjour, je suis là pour vous assister.",
		Select:      "Veuillez choisir un élément dans la liste.",
		NoResponses: "Aucune réponse trouvée pour cette catégorie.",
		Loading:     "Chargement...",
	},
	lang.EN: {
		Welcome:     "Hello, I'm here to help you.",
		Select:      "Please choose from the list.",
		NoResponses: "No responses found for this category.",
		Loading:     "Loading...",
	},
	lang.AR: {
		Welcome:     "مرحبًا، أنا هنا لمساعدتك.",
		Select:      "اختر من القائمة.",
		NoResponses: "لا توجد ردود على هذه الفئة.",
		Loading:     "جارٍ التحميل...",
	},
}

// Navigation tells the widget which navigation buttons to show.
type Navigation struct {
	BackToPrevious bool `json:"back_to_previous"`
	BackToMain     bool `json:"back_to_main"`
	Restart        bool `json:"restart"`
}

var (
	navCategories    = Navigation{}
	navSubcategories = Navigation{BackToPrevious: true, BackToMain: true}
	navResponses     = Navigation{BackToPrevious: true, BackToMain: true, Restart: true}
)

type CategoryItem struct {
	ID            int64  `json:"id"`
	Label         string `json:"label"`
	HasChildren   bool   `json:"has_children"`
	ResponseCount int    `json:"response_count"`
}

type ResponseItem struct {
	ID      int64  `json:"id"`
	Type    string `json:"type"`
	Answer  string `json:"answer"`
	FileURL string `json:"file_url"`
}

type CategoriesResponse struct {
	Messages   Messages       `json:"messages"`
	Navigation Navigation     `json:"navigation_options"`
	Categories []CategoryItem `json:"categories"`
}

type SubcategoriesResponse struct {
	Messages      Messages       `json:"messages"`
	Navigation    Navigation     `json:"navigation_options"`
	Subcategories []CategoryItem `json:"subcategories"`
}

type CategoryResponsesResponse struct {
	Messages   Messages       `json:"messages"`
	Navigation Navigation     `json:"navigation_options"`
	Responses  []ResponseItem `json:"responses"`
}

// browseLang is the tenant-wide display language. Unknown or unreadable
// settings fall back to French.
func browseLang(ctx context.Context, store *storage.Store) lang.Code {
	v, err := store.GetSetting(ctx, storage.SettingLanguage, string(lang.FR))
	if err != nil {
		slog.Warn("could not read language setting", "error", err)
		return lang.FR
	}
	if l, ok := lang.Parse(v); ok {
		return l
	}
	return lang.FR
}

func categoryItems(nodes []storage.CategoryNode, l lang.Code) []CategoryItem {
	items := make([]CategoryItem, len(nodes))
	for i, n := range nodes {
		items[i] = CategoryItem{
			ID:            n.ID,
			Label:         n.Label(l),
			HasChildren:   n.ChildCount > 0,
			ResponseCount: n.ResponseCount,
		}
	}
	return items
}

func categoryID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func handleCategories(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := browseLang(r.Context(), deps.Store)
		nodes, err := deps.Store.ListChildCategories(r.Context(), 0)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list categories: %v", err)
			return
		}
		writeJSON(w, CategoriesResponse{
			Messages:   browseMessages[l],
			Navigation: navCategories,
			Categories: categoryItems(nodes, l),
		})
	}
}

func handleSubcategories(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := categoryID(r)
		if !ok {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid category id")
			return
		}
		l := browseLang(r.Context(), deps.Store)
		nodes, err := deps.Store.ListChildCategories(r.Context(), id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list subcategories: %v", err)
			return
		}
		writeJSON(w, SubcategoriesResponse{
			Messages:      browseMessages[l],
			Navigation:    navSubcategories,
			Subcategories: categoryItems(nodes, l),
		})
	}
}

func handleCategoryResponses(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := categoryID(r)
		if !ok {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid category id")
			return
		}
		l := browseLang(r.Context(), deps.Store)

		out := CategoryResponsesResponse{
			Messages:   browseMessages[l],
			Navigation: navResponses,
			Responses:  []ResponseItem{},
		}

		items, err := categoryResponseItems(r.Context(), deps.Store, id, l)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "category not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list responses: %v", err)
			return
		}
		out.Responses = append(out.Responses, items...)
		writeJSON(w, out)
	}
}

// categoryResponseItems lists the responses of category id in language l.
// A hidden category lists nothing; a missing one is storage.ErrNotFound.
func categoryResponseItems(ctx context.Context, store *storage.Store, id int64, l lang.Code) ([]ResponseItem, error) {
	cat, err := store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cat.Visible {
		return nil, nil
	}

	resps, err := store.ListResponsesForCategory(ctx, id, "")
	if err != nil {
		return nil, err
	}
	items := make([]ResponseItem, len(resps))
	for i, resp := range resps {
		items[i] = ResponseItem{
			ID:      resp.ID,
			Type:    string(resp.Type),
			Answer:  resp.Answers.GetOr(l, lang.FR),
			FileURL: resp.FileURL,
		}
	}
	return items, nil
}
