package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kalambet/askbot/internal/lang"
)

const categoryColumns = `c.id, COALESCE(c.parent_id, 0), c.name_fr, c.name_en, c.name_ar, c.source_lang, c.visible`

const responseColumns = `r.id, r.category_id, r.type, r.answer_fr, r.answer_en, r.answer_ar, r.file_url, r.source_lang`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner, extra ...any) (Category, error) {
	var c Category
	var src string
	dest := append([]any{&c.ID, &c.ParentID, &c.Names.FR, &c.Names.EN, &c.Names.AR, &src, &c.Visible}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Category{}, err
	}
	c.SourceLang = lang.Code(src)
	return c, nil
}

func scanResponse(row rowScanner) (Response, error) {
	var r Response
	var typ, src string
	if err := row.Scan(&r.ID, &r.CategoryID, &typ, &r.Answers.FR, &r.Answers.EN, &r.Answers.AR, &r.FileURL, &src); err != nil {
		return Response{}, err
	}
	r.Type = ResponseType(typ)
	r.SourceLang = lang.Code(src)
	return r, nil
}

// ListVisibleCategories returns every visible category in id order.
func (s *Store) ListVisibleCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories c WHERE c.visible = 1 ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListTextResponses returns the text-type responses whose category is
// visible, in id order.
func (s *Store) ListTextResponses(ctx context.Context) ([]Response, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+responseColumns+`
		FROM responses r JOIN categories c ON c.id = r.category_id
		WHERE c.visible = 1 AND r.type = ?
		ORDER BY r.id`, string(TypeText))
	if err != nil {
		return nil, fmt.Errorf("querying text responses: %w", err)
	}
	defer rows.Close()
	return collectResponses(rows)
}

// ListResponsesForCategory returns the responses of a category in id order,
// skipping those of excludeType when it is non-empty.
func (s *Store) ListResponsesForCategory(ctx context.Context, categoryID int64, excludeType ResponseType) ([]Response, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+responseColumns+`
		FROM responses r
		WHERE r.category_id = ? AND (? = '' OR r.type != ?)
		ORDER BY r.id`, categoryID, string(excludeType), string(excludeType))
	if err != nil {
		return nil, fmt.Errorf("querying responses for category %d: %w", categoryID, err)
	}
	defer rows.Close()
	return collectResponses(rows)
}

func collectResponses(rows *sql.Rows) ([]Response, error) {
	var out []Response
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning response: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetCategory returns the category with the given id regardless of visibility.
func (s *Store) GetCategory(ctx context.Context, id int64) (Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories c WHERE c.id = ?`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return Category{}, ErrNotFound
	}
	if err != nil {
		return Category{}, fmt.Errorf("getting category %d: %w", id, err)
	}
	return c, nil
}

// GetResponse returns the response with the given id.
func (s *Store) GetResponse(ctx context.Context, id int64) (Response, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+responseColumns+` FROM responses r WHERE r.id = ?`, id)
	r, err := scanResponse(row)
	if err == sql.ErrNoRows {
		return Response{}, ErrNotFound
	}
	if err != nil {
		return Response{}, fmt.Errorf("getting response %d: %w", id, err)
	}
	return r, nil
}

// ListChildCategories returns the visible children of parentID with their
// child and response counts. parentID 0 lists the top-level categories.
func (s *Store) ListChildCategories(ctx context.Context, parentID int64) ([]CategoryNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+`,
			(SELECT COUNT(*) FROM categories k WHERE k.parent_id = c.id),
			(SELECT COUNT(*) FROM responses r WHERE r.category_id = c.id)
		FROM categories c
		WHERE c.visible = 1 AND COALESCE(c.parent_id, 0) = ?
		ORDER BY c.id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("querying child categories of %d: %w", parentID, err)
	}
	defer rows.Close()

	var out []CategoryNode
	for rows.Next() {
		var n CategoryNode
		c, err := scanCategory(rows, &n.ChildCount, &n.ResponseCount)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		n.Category = c
		out = append(out, n)
	}
	return out, rows.Err()
}

// EnsureCategory inserts c unless a category with the same French name and
// parent already exists, and returns the stored row. Re-running a seed is
// therefore a no-op.
func (s *Store) EnsureCategory(ctx context.Context, c Category) (Category, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+categoryColumns+` FROM categories c
		WHERE c.name_fr = ? AND COALESCE(c.parent_id, 0) = ?`, c.Names.FR, c.ParentID)
	existing, err := scanCategory(row)
	if err == nil {
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return Category{}, fmt.Errorf("looking up category %q: %w", c.Names.FR, err)
	}

	src := c.SourceLang
	if !src.Valid() {
		src = lang.FR
	}
	var parent any
	if c.ParentID != 0 {
		parent = c.ParentID
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (parent_id, name_fr, name_en, name_ar, source_lang, visible)
		VALUES (?, ?, ?, ?, ?, ?)`,
		parent, c.Names.FR, c.Names.EN, c.Names.AR, string(src), c.Visible)
	if err != nil {
		return Category{}, fmt.Errorf("inserting category %q: %w", c.Names.FR, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Category{}, err
	}
	c.ID = id
	c.SourceLang = src
	return c, nil
}

// EnsureResponse inserts r unless a response with the same type, category
// and French answer already exists. The boolean reports whether a row was
// inserted.
func (s *Store) EnsureResponse(ctx context.Context, r Response) (Response, bool, error) {
	if !r.Type.Valid() {
		return Response{}, false, fmt.Errorf("invalid response type %q", r.Type)
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+responseColumns+` FROM responses r
		WHERE r.type = ? AND r.category_id = ? AND r.answer_fr = ? AND r.file_url = ?`,
		string(r.Type), r.CategoryID, r.Answers.FR, r.FileURL)
	existing, err := scanResponse(row)
	if err == nil {
		return existing, false, nil
	}
	if err != sql.ErrNoRows {
		return Response{}, false, fmt.Errorf("looking up response: %w", err)
	}

	src := r.SourceLang
	if !src.Valid() {
		src = lang.FR
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO responses (category_id, type, answer_fr, answer_en, answer_ar, file_url, source_lang)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.CategoryID, string(r.Type), r.Answers.FR, r.Answers.EN, r.Answers.AR, r.FileURL, string(src))
	if err != nil {
		return Response{}, false, fmt.Errorf("inserting response: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Response{}, false, err
	}
	r.ID = id
	r.SourceLang = src
	return r, true, nil
}

// SetCategoryVisible toggles whether a category and its responses are
// offered to users.
func (s *Store) SetCategoryVisible(ctx context.Context, id int64, visible bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE categories SET visible = ? WHERE id = ?`, visible, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
