package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"papermesh/utils"
)

// Store SQLite 持久化存储。除追加和更新外从不物理删除数据。
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// createTablesSQL 建表语句
const createTablesSQL = `
CREATE TABLE IF NOT EXISTS account (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  cash REAL NOT NULL,
  total_value REAL NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
  symbol TEXT PRIMARY KEY,
  total_quantity INTEGER NOT NULL,
  available_quantity INTEGER NOT NULL,
  avg_cost REAL NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
  client_order_id TEXT PRIMARY KEY,
  broker_order_id TEXT,
  signal_id TEXT,
  symbol TEXT NOT NULL,
  direction TEXT NOT NULL,
  order_type TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  price REAL NOT NULL,
  time_in_force TEXT NOT NULL,
  timeout_seconds INTEGER NOT NULL,
  status TEXT NOT NULL,
  cum_filled_qty INTEGER NOT NULL DEFAULT 0,
  reject_code TEXT,
  reject_reason TEXT,
  expires_at TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS fills (
  fill_id TEXT PRIMARY KEY,
  client_order_id TEXT NOT NULL,
  broker_trade_id TEXT,
  broker_order_id TEXT,
  symbol TEXT NOT NULL,
  direction TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  price REAL NOT NULL,
  commission REAL NOT NULL,
  stamp_tax REAL NOT NULL,
  transfer_fee REAL NOT NULL,
  trade_time TEXT NOT NULL,
  created_at TEXT NOT NULL,
  FOREIGN KEY (client_order_id) REFERENCES orders(client_order_id)
);
CREATE INDEX IF NOT EXISTS idx_fills_trade_time ON fills(trade_time);

CREATE TABLE IF NOT EXISTS daily_pnl (
  date TEXT PRIMARY KEY,
  start_value REAL,
  end_value REAL,
  realized_pnl REAL,
  unrealized_pnl REAL,
  commission REAL,
  trades INTEGER,
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  event_type TEXT NOT NULL,
  related_id TEXT,
  payload_json TEXT NOT NULL,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);

CREATE TABLE IF NOT EXISTS system_state (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`

// NewStore 打开（或创建）数据库
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}

	// 使用 WAL 模式提高并发性能
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	// SQLite 并发限制，单连接串行化
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(createTablesSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("创建表失败: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureAccountRow(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close 关闭数据库
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func nowISO() string {
	return utils.FormatTime(utils.NowCN())
}

// ensureAccountRow 确保账户单例行存在（资金为0，等待注资）
func (s *Store) ensureAccountRow() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int
	err := s.db.QueryRow("SELECT id FROM account WHERE id = 1").Scan(&id)
	if err == sql.ErrNoRows {
		_, err = s.db.Exec(
			"INSERT INTO account (id, cash, total_value, updated_at) VALUES (1, 0, 0, ?)",
			nowISO(),
		)
	}
	if err != nil {
		return fmt.Errorf("初始化账户失败: %w", err)
	}
	return nil
}

// SetInitialCashIfEmpty 注入初始资金（仅当账户仍为0时，幂等）
func (s *Store) SetInitialCashIfEmpty(cash float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var curCash, curValue float64
	if err := s.db.QueryRow("SELECT cash, total_value FROM account WHERE id = 1").Scan(&curCash, &curValue); err != nil {
		return fmt.Errorf("查询账户失败: %w", err)
	}
	if curCash != 0 || curValue != 0 {
		return nil
	}
	_, err := s.db.Exec(
		"UPDATE account SET cash=?, total_value=?, updated_at=? WHERE id = 1",
		cash, cash, nowISO(),
	)
	if err != nil {
		return fmt.Errorf("注入初始资金失败: %w", err)
	}
	return nil
}

// GetAccount 查询账户
func (s *Store) GetAccount() (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := &Account{}
	err := s.db.QueryRow("SELECT cash, total_value, updated_at FROM account WHERE id = 1").
		Scan(&a.Cash, &a.TotalValue, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("查询账户失败: %w", err)
	}
	return a, nil
}

// UpdateAccount 更新账户资金与总市值
func (s *Store) UpdateAccount(cash, totalValue float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"UPDATE account SET cash=?, total_value=?, updated_at=? WHERE id = 1",
		cash, totalValue, nowISO(),
	)
	if err != nil {
		return fmt.Errorf("更新账户失败: %w", err)
	}
	return nil
}

// UpsertPosition 更新或插入持仓
func (s *Store) UpsertPosition(symbol string, totalQty, availableQty int64, avgCost float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO positions (symbol, total_quantity, available_quantity, avg_cost, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
		  total_quantity=excluded.total_quantity,
		  available_quantity=excluded.available_quantity,
		  avg_cost=excluded.avg_cost,
		  updated_at=excluded.updated_at`,
		symbol, totalQty, availableQty, avgCost, nowISO(),
	)
	if err != nil {
		return fmt.Errorf("更新持仓失败: %w", err)
	}
	return nil
}

// GetPosition 查询单个持仓，不存在时返回 nil
func (s *Store) GetPosition(symbol string) (*Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &Position{}
	err := s.db.QueryRow(
		"SELECT symbol, total_quantity, available_quantity, avg_cost, updated_at FROM positions WHERE symbol=?",
		symbol,
	).Scan(&p.Symbol, &p.TotalQuantity, &p.AvailableQuantity, &p.AvgCost, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询持仓失败: %w", err)
	}
	return p, nil
}

// ListPositions 查询全部持仓
func (s *Store) ListPositions() ([]*Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT symbol, total_quantity, available_quantity, avg_cost, updated_at FROM positions ORDER BY symbol",
	)
	if err != nil {
		return nil, fmt.Errorf("查询持仓列表失败: %w", err)
	}
	defer rows.Close()

	var positions []*Position
	for rows.Next() {
		p := &Position{}
		if err := rows.Scan(&p.Symbol, &p.TotalQuantity, &p.AvailableQuantity, &p.AvgCost, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("读取持仓记录失败: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// InsertOrder 插入订单
func (s *Store) InsertOrder(o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowISO()
	if o.CreatedAt == "" {
		o.CreatedAt = now
	}
	if o.UpdatedAt == "" {
		o.UpdatedAt = now
	}

	_, err := s.db.Exec(`
		INSERT INTO orders (
		  client_order_id, broker_order_id, signal_id, symbol, direction, order_type,
		  quantity, price, time_in_force, timeout_seconds, status, cum_filled_qty,
		  reject_code, reject_reason, expires_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ClientOrderID, nullable(o.BrokerOrderID), nullable(o.SignalID),
		o.Symbol, o.Direction, o.OrderType,
		o.Quantity, o.Price, o.TimeInForce, o.TimeoutSeconds, o.Status, o.CumFilledQty,
		nullable(o.RejectCode), nullable(o.RejectReason), nullable(o.ExpiresAt),
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("插入订单失败: %w", err)
	}
	return nil
}

const orderColumns = `client_order_id, broker_order_id, signal_id, symbol, direction, order_type,
	quantity, price, time_in_force, timeout_seconds, status, cum_filled_qty,
	reject_code, reject_reason, expires_at, created_at, updated_at`

func scanOrder(scanner interface{ Scan(...interface{}) error }) (*Order, error) {
	o := &Order{}
	var brokerOrderID, signalID, rejectCode, rejectReason, expiresAt sql.NullString
	err := scanner.Scan(
		&o.ClientOrderID, &brokerOrderID, &signalID, &o.Symbol, &o.Direction, &o.OrderType,
		&o.Quantity, &o.Price, &o.TimeInForce, &o.TimeoutSeconds, &o.Status, &o.CumFilledQty,
		&rejectCode, &rejectReason, &expiresAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.BrokerOrderID = brokerOrderID.String
	o.SignalID = signalID.String
	o.RejectCode = rejectCode.String
	o.RejectReason = rejectReason.String
	o.ExpiresAt = expiresAt.String
	return o, nil
}

// GetOrder 查询订单，不存在时返回 nil
func (s *Store) GetOrder(clientOrderID string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow("SELECT "+orderColumns+" FROM orders WHERE client_order_id=?", clientOrderID)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询订单失败: %w", err)
	}
	return o, nil
}

// ListOrders 按状态查询订单（status 为空时返回全部），按创建时间倒序
func (s *Store) ListOrders(status string, limit int) ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 200
	}

	var rows *sql.Rows
	var err error
	if status != "" {
		rows, err = s.db.Query(
			"SELECT "+orderColumns+" FROM orders WHERE status=? ORDER BY created_at DESC LIMIT ?",
			status, limit,
		)
	} else {
		rows, err = s.db.Query(
			"SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC LIMIT ?", limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("查询订单列表失败: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// ListOpenOrders 查询全部挂单（NEW 状态），按创建时间升序
func (s *Store) ListOpenOrders() ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT " + orderColumns + " FROM orders WHERE status='NEW' ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("查询挂单失败: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// ListExpiredOpenOrders 查询已过期的挂单
func (s *Store) ListExpiredOpenOrders(nowISO string) ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT "+orderColumns+" FROM orders WHERE status='NEW' AND expires_at IS NOT NULL AND expires_at <= ? ORDER BY created_at",
		nowISO,
	)
	if err != nil {
		return nil, fmt.Errorf("查询过期挂单失败: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func collectOrders(rows *sql.Rows) ([]*Order, error) {
	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("读取订单记录失败: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateOrderStatus 更新订单状态
func (s *Store) UpdateOrderStatus(clientOrderID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"UPDATE orders SET status=?, updated_at=? WHERE client_order_id=?",
		status, nowISO(), clientOrderID,
	)
	if err != nil {
		return fmt.Errorf("更新订单状态失败: %w", err)
	}
	return nil
}

// MarkOrderFilled 标记订单全部成交
func (s *Store) MarkOrderFilled(clientOrderID string, cumFilledQty int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"UPDATE orders SET status=?, cum_filled_qty=?, expires_at=NULL, updated_at=? WHERE client_order_id=?",
		OrderStatusFilled, cumFilledQty, nowISO(), clientOrderID,
	)
	if err != nil {
		return fmt.Errorf("更新成交状态失败: %w", err)
	}
	return nil
}

// SetOrderExpiresAt 设置订单过期时间（空串表示清除）
func (s *Store) SetOrderExpiresAt(clientOrderID, expiresAt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"UPDATE orders SET expires_at=?, updated_at=? WHERE client_order_id=?",
		nullable(expiresAt), nowISO(), clientOrderID,
	)
	if err != nil {
		return fmt.Errorf("更新订单过期时间失败: %w", err)
	}
	return nil
}

// InsertFill 插入成交记录
func (s *Store) InsertFill(f *Fill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.CreatedAt == "" {
		f.CreatedAt = nowISO()
	}
	_, err := s.db.Exec(`
		INSERT INTO fills (
		  fill_id, client_order_id, broker_trade_id, broker_order_id, symbol, direction,
		  quantity, price, commission, stamp_tax, transfer_fee, trade_time, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.FillID, f.ClientOrderID, nullable(f.BrokerTradeID), nullable(f.BrokerOrderID),
		f.Symbol, f.Direction, f.Quantity, f.Price,
		f.Commission, f.StampTax, f.TransferFee, f.TradeTime, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("插入成交记录失败: %w", err)
	}
	return nil
}

// ListFills 查询成交记录（sinceISO 为空时返回全部），按成交时间倒序
func (s *Store) ListFills(sinceISO string, limit int) ([]*Fill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 500
	}

	var rows *sql.Rows
	var err error
	query := `SELECT fill_id, client_order_id, broker_trade_id, broker_order_id, symbol, direction,
		quantity, price, commission, stamp_tax, transfer_fee, trade_time, created_at FROM fills`
	if sinceISO != "" {
		rows, err = s.db.Query(query+" WHERE trade_time >= ? ORDER BY trade_time DESC LIMIT ?", sinceISO, limit)
	} else {
		rows, err = s.db.Query(query+" ORDER BY trade_time DESC LIMIT ?", limit)
	}
	if err != nil {
		return nil, fmt.Errorf("查询成交记录失败: %w", err)
	}
	defer rows.Close()

	var fills []*Fill
	for rows.Next() {
		f := &Fill{}
		var brokerTradeID, brokerOrderID sql.NullString
		if err := rows.Scan(
			&f.FillID, &f.ClientOrderID, &brokerTradeID, &brokerOrderID, &f.Symbol, &f.Direction,
			&f.Quantity, &f.Price, &f.Commission, &f.StampTax, &f.TransferFee, &f.TradeTime, &f.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("读取成交记录失败: %w", err)
		}
		f.BrokerTradeID = brokerTradeID.String
		f.BrokerOrderID = brokerOrderID.String
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

// CountFillsForDate 统计某日成交笔数（date 为 YYYY-MM-DD）
func (s *Store) CountFillsForDate(date string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM fills WHERE trade_time LIKE ?", date+"%").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("统计成交笔数失败: %w", err)
	}
	return n, nil
}

// SumFeesForDate 统计某日费用合计
func (s *Store) SumFeesForDate(date string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fees float64
	err := s.db.QueryRow(
		"SELECT COALESCE(SUM(commission + stamp_tax + transfer_fee), 0) FROM fills WHERE trade_time LIKE ?",
		date+"%",
	).Scan(&fees)
	if err != nil {
		return 0, fmt.Errorf("统计费用失败: %w", err)
	}
	return fees, nil
}

// UpsertDailyPnl 写入或更新每日盈亏
func (s *Store) UpsertDailyPnl(p *DailyPnl) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO daily_pnl (date, start_value, end_value, realized_pnl, unrealized_pnl, commission, trades, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
		  start_value=excluded.start_value,
		  end_value=excluded.end_value,
		  realized_pnl=excluded.realized_pnl,
		  unrealized_pnl=excluded.unrealized_pnl,
		  commission=excluded.commission,
		  trades=excluded.trades`,
		p.Date, p.StartValue, p.EndValue, p.RealizedPnl, p.UnrealizedPnl, p.Commission, p.Trades, nowISO(),
	)
	if err != nil {
		return fmt.Errorf("写入每日盈亏失败: %w", err)
	}
	return nil
}

// ListDailyPnl 按日期区间查询每日盈亏（边界为空时不限制）
func (s *Store) ListDailyPnl(dateFrom, dateTo string) ([]*DailyPnl, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := "SELECT date, start_value, end_value, realized_pnl, unrealized_pnl, commission, trades, created_at FROM daily_pnl"
	var args []interface{}
	switch {
	case dateFrom != "" && dateTo != "":
		query += " WHERE date BETWEEN ? AND ?"
		args = append(args, dateFrom, dateTo)
	case dateFrom != "":
		query += " WHERE date >= ?"
		args = append(args, dateFrom)
	case dateTo != "":
		query += " WHERE date <= ?"
		args = append(args, dateTo)
	}
	query += " ORDER BY date"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询每日盈亏失败: %w", err)
	}
	defer rows.Close()

	var result []*DailyPnl
	for rows.Next() {
		p := &DailyPnl{}
		if err := rows.Scan(&p.Date, &p.StartValue, &p.EndValue, &p.RealizedPnl,
			&p.UnrealizedPnl, &p.Commission, &p.Trades, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("读取每日盈亏失败: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// AppendEvent 追加审计事件，返回自增ID
func (s *Store) AppendEvent(eventType, relatedID string, payload map[string]interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("序列化事件失败: %w", err)
	}
	res, err := s.db.Exec(
		"INSERT INTO events (event_type, related_id, payload_json, created_at) VALUES (?, ?, ?, ?)",
		eventType, nullable(relatedID), string(data), nowISO(),
	)
	if err != nil {
		return 0, fmt.Errorf("追加事件失败: %w", err)
	}
	return res.LastInsertId()
}

// ListEvents 按自增ID游标查询事件
func (s *Store) ListEvents(sinceID int64, limit int) ([]*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.Query(
		"SELECT id, event_type, related_id, payload_json, created_at FROM events WHERE id > ? ORDER BY id LIMIT ?",
		sinceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("查询事件失败: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		var relatedID sql.NullString
		var payloadJSON string
		if err := rows.Scan(&e.ID, &e.EventType, &relatedID, &payloadJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("读取事件失败: %w", err)
		}
		e.RelatedID = relatedID.String
		if err := json.Unmarshal([]byte(payloadJSON), &e.Payload); err != nil {
			e.Payload = map[string]interface{}{"raw": payloadJSON}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LatestEventID 查询当前最大事件ID，无事件时返回0
func (s *Store) LatestEventID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.db.QueryRow("SELECT COALESCE(MAX(id), 0) FROM events").Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("查询最大事件ID失败: %w", err)
	}
	return id, nil
}

// GetState 查询系统状态值，键不存在时返回空串
func (s *Store) GetState(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.db.QueryRow("SELECT value FROM system_state WHERE key=?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("查询系统状态失败: %w", err)
	}
	return value, nil
}

// SetState 写入系统状态值
func (s *Store) SetState(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO system_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, nowISO(),
	)
	if err != nil {
		return fmt.Errorf("写入系统状态失败: %w", err)
	}
	return nil
}

// nullable 空串转 NULL
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
