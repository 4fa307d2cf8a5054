package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Challenge struct {
	ID          string
	Title       string
	Description string
	Difficulty  string
	Points      int64
	Category    string
}

type UserChallenge struct {
	UserID      string
	ChallengeID string
	Completed   bool
	StartedAt   int64
	CompletedAt sql.NullInt64
}

type Profile struct {
	ID          string
	Username    string
	TotalPoints int64
}

const getKV = `SELECT value FROM kv_entries WHERE key = ?`

func (q *Queries) GetKV(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := q.db.QueryRowContext(ctx, getKV, key).Scan(&value)
	return value, err
}

const setKV = `INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

type SetKVParams struct {
	Key       string
	Value     []byte
	UpdatedAt int64
}

func (q *Queries) SetKV(ctx context.Context, arg SetKVParams) error {
	_, err := q.db.ExecContext(ctx, setKV, arg.Key, arg.Value, arg.UpdatedAt)
	return err
}

const deleteKV = `DELETE FROM kv_entries WHERE key = ?`

func (q *Queries) DeleteKV(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, deleteKV, key)
	return err
}

const upsertChallenge = `INSERT INTO challenges (id, title, description, difficulty, points, category)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    title = excluded.title,
    description = excluded.description,
    difficulty = excluded.difficulty,
    points = excluded.points,
    category = excluded.category`

func (q *Queries) UpsertChallenge(ctx context.Context, arg Challenge) error {
	_, err := q.db.ExecContext(ctx, upsertChallenge,
		arg.ID, arg.Title, arg.Description, arg.Difficulty, arg.Points, arg.Category)
	return err
}

const listChallenges = `SELECT id, title, description, difficulty, points, category
FROM challenges ORDER BY points ASC, id ASC`

func (q *Queries) ListChallenges(ctx context.Context) ([]Challenge, error) {
	rows, err := q.db.QueryContext(ctx, listChallenges)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Challenge
	for rows.Next() {
		var i Challenge
		if err := rows.Scan(&i.ID, &i.Title, &i.Description, &i.Difficulty, &i.Points, &i.Category); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getChallenge = `SELECT id, title, description, difficulty, points, category FROM challenges WHERE id = ?`

func (q *Queries) GetChallenge(ctx context.Context, id string) (Challenge, error) {
	var i Challenge
	err := q.db.QueryRowContext(ctx, getChallenge, id).
		Scan(&i.ID, &i.Title, &i.Description, &i.Difficulty, &i.Points, &i.Category)
	return i, err
}

const listUserChallenges = `SELECT user_id, challenge_id, completed, started_at, completed_at
FROM user_challenges WHERE user_id = ? ORDER BY started_at ASC`

func (q *Queries) ListUserChallenges(ctx context.Context, userID string) ([]UserChallenge, error) {
	rows, err := q.db.QueryContext(ctx, listUserChallenges, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []UserChallenge
	for rows.Next() {
		var i UserChallenge
		if err := rows.Scan(&i.UserID, &i.ChallengeID, &i.Completed, &i.StartedAt, &i.CompletedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getUserChallenge = `SELECT user_id, challenge_id, completed, started_at, completed_at
FROM user_challenges WHERE user_id = ? AND challenge_id = ?`

func (q *Queries) GetUserChallenge(ctx context.Context, userID, challengeID string) (UserChallenge, error) {
	var i UserChallenge
	err := q.db.QueryRowContext(ctx, getUserChallenge, userID, challengeID).
		Scan(&i.UserID, &i.ChallengeID, &i.Completed, &i.StartedAt, &i.CompletedAt)
	return i, err
}

const insertUserChallenge = `INSERT INTO user_challenges (user_id, challenge_id, completed, started_at)
VALUES (?, ?, 0, ?)`

func (q *Queries) InsertUserChallenge(ctx context.Context, userID, challengeID string, startedAt int64) error {
	_, err := q.db.ExecContext(ctx, insertUserChallenge, userID, challengeID, startedAt)
	return err
}

const completeUserChallenge = `UPDATE user_challenges SET completed = 1, completed_at = ?
WHERE user_id = ? AND challenge_id = ? AND completed = 0`

func (q *Queries) CompleteUserChallenge(ctx context.Context, userID, challengeID string, completedAt int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, completeUserChallenge, completedAt, userID, challengeID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const addProfilePoints = `INSERT INTO profiles (id, username, total_points) VALUES (?, '', ?)
ON CONFLICT (id) DO UPDATE SET total_points = profiles.total_points + excluded.total_points`

func (q *Queries) AddProfilePoints(ctx context.Context, userID string, points int64) error {
	_, err := q.db.ExecContext(ctx, addProfilePoints, userID, points)
	return err
}

const upsertProfileUsername = `INSERT INTO profiles (id, username, total_points) VALUES (?, ?, 0)
ON CONFLICT (id) DO UPDATE SET username = excluded.username
RETURNING id, username, total_points`

func (q *Queries) UpsertProfileUsername(ctx context.Context, userID, username string) (Profile, error) {
	var p Profile
	err := q.db.QueryRowContext(ctx, upsertProfileUsername, userID, username).Scan(&p.ID, &p.Username, &p.TotalPoints)
	return p, err
}

const getProfile = `SELECT id, username, total_points FROM profiles WHERE id = ?`

func (q *Queries) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	err := q.db.QueryRowContext(ctx, getProfile, userID).Scan(&p.ID, &p.Username, &p.TotalPoints)
	return p, err
}

const topProfiles = `SELECT id, username, total_points FROM profiles
ORDER BY total_points DESC, id ASC LIMIT ?`

func (q *Queries) TopProfiles(ctx context.Context, limit int64) ([]Profile, error) {
	rows, err := q.db.QueryContext(ctx, topProfiles, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.TotalPoints); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const createInquiry = `INSERT INTO business_inquiries
(id, company_name, contact_name, email, phone, message, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

type CreateInquiryParams struct {
	ID          string
	CompanyName string
	ContactName string
	Email       string
	Phone       string
	Message     string
	CreatedAt   int64
}

func (q *Queries) CreateInquiry(ctx context.Context, arg CreateInquiryParams) error {
	_, err := q.db.ExecContext(ctx, createInquiry,
		arg.ID, arg.CompanyName, arg.ContactName, arg.Email, arg.Phone, arg.Message, arg.CreatedAt)
	return err
}

const countInquiries = `SELECT COUNT(*) FROM business_inquiries`

func (q *Queries) CountInquiries(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countInquiries).Scan(&n)
	return n, err
}
