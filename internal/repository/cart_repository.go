package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/utils"
)

// CartRepo persists carts (one per user) and their items.
type CartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{db: db} }

// GetOrCreate returns the cart of userID, creating it on first access.  The
// unique key on carts.user_id makes concurrent first calls converge on one
// row; an unknown user fails the foreign key and yields ErrNotFound.
func (r *CartRepo) GetOrCreate(ctx context.Context, userID string) (*model.Cart, error) {
	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO carts (id, user_id) VALUES (?, ?) ON DUPLICATE KEY UPDATE id = id",
		utils.NewID(), userID); err != nil {
		return nil, classify(err)
	}
	var c model.Cart
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, created_at FROM carts WHERE user_id = ?", userID).
		Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}
	c.Items, err = r.Items(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Items lists the cart's items with their course summary, oldest first.
func (r *CartRepo) Items(ctx context.Context, cartID string) ([]model.CartItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ci.id, ci.cart_id, ci.course_id, ci.price, ci.created_at,
		        co.id, co.title, co.description, co.thumbnail_url, co.price,
		        u.id, u.name, u.username, u.avatar_url
		 FROM cart_items ci
		 JOIN courses co ON co.id = ci.course_id
		 JOIN users u ON u.id = co.instructor_id
		 WHERE ci.cart_id = ?
		 ORDER BY ci.created_at, ci.id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CartItem{}
	for rows.Next() {
		var it model.CartItem
		var c model.CartCourse
		if err := rows.Scan(&it.ID, &it.CartID, &it.CourseID, &it.Price, &it.CreatedAt,
			&c.ID, &c.Title, &c.Description, &c.ThumbnailURL, &c.Price,
			&c.Instructor.ID, &c.Instructor.Name, &c.Instructor.Username, &c.Instructor.AvatarURL); err != nil {
			return nil, err
		}
		it.Course = &c
		out = append(out, it)
	}
	return out, rows.Err()
}

// AddItem inserts a course with its current price.  ErrDuplicate when the
// course is already in the cart.
func (r *CartRepo) AddItem(ctx context.Context, cartID, courseID string, price float64) (*model.CartItem, error) {
	it := model.CartItem{
		ID:        utils.NewID(),
		CartID:    cartID,
		CourseID:  courseID,
		Price:     price,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO cart_items (id, cart_id, course_id, price, created_at) VALUES (?,?,?,?,?)",
		it.ID, it.CartID, it.CourseID, it.Price, it.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return &it, nil
}

// RemoveItem deletes one course from the cart.
func (r *CartRepo) RemoveItem(ctx context.Context, cartID, courseID string) error {
	return affected(r.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE cart_id = ? AND course_id = ?", cartID, courseID))
}

// Clear empties the cart.
func (r *CartRepo) Clear(ctx context.Context, cartID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = ?", cartID)
	return err
}

// IsEnrolled reports whether userID already owns courseID.
func (r *CartRepo) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	return exists(ctx, r.db, "SELECT 1 FROM enrollments WHERE user_id = ? AND course_id = ?", userID, courseID)
}

// Total sums the snapshot prices of courseIDs inside the cart and reports
// how many of them were found.
func (r *CartRepo) Total(ctx context.Context, cartID string, courseIDs []string) (float64, int, error) {
	if len(courseIDs) == 0 {
		return 0, 0, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(courseIDs)), ",")
	args := make([]any, 0, len(courseIDs)+1)
	args = append(args, cartID)
	for _, id := range courseIDs {
		args = append(args, id)
	}
	var total float64
	var found int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(price), 0), COUNT(*) FROM cart_items WHERE cart_id = ? AND course_id IN ("+marks+")",
		args...).Scan(&total, &found)
	return total, found, err
}
