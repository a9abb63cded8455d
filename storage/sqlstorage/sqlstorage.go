package sqlstorage

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wenzapen/scraper/sqldb"
	"github.com/wenzapen/scraper/storage"
)

var columns = []sqldb.Field{
	{Title: "crawl_id", Type: "TEXT"},
	{Title: "page", Type: "INTEGER"},
	{Title: "url", Type: "TEXT"},
	{Title: "data", Type: "TEXT"},
	{Title: "time", Type: "TEXT"},
}

// SQLStorage buffers crawled pages and writes them to sqlite in batches.
type SQLStorage struct {
	mu         sync.Mutex
	dataDocker []*storage.DataCell
	db         *sqldb.Sqldb
	options
}

func New(opts ...Option) (*SQLStorage, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	s := &SQLStorage{
		options: options,
	}
	var err error
	s.db, err = sqldb.New(
		sqldb.WithConnURL(s.sqlURL),
		sqldb.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	err = s.db.CreateTable(sqldb.TableData{
		TableName:   s.table,
		ColumnNames: columns,
		AutoKey:     true,
	})
	if err != nil {
		s.db.Close()
		return nil, fmt.Errorf("create table %s: %w", s.table, err)
	}
	return s, nil
}

func (s *SQLStorage) Save(dataCells ...*storage.DataCell) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cell := range dataCells {
		s.dataDocker = append(s.dataDocker, cell)
		if len(s.dataDocker) >= s.BatchCount {
			if err := s.flush(); err != nil {
				s.logger.Error("insert data failed", zap.Error(err))
				return err
			}
		}
	}
	return nil
}

func (s *SQLStorage) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

func (s *SQLStorage) flush() error {
	if len(s.dataDocker) == 0 {
		return nil
	}
	defer func() {
		s.dataDocker = nil
	}()

	args := make([]any, 0, len(s.dataDocker)*len(columns))
	for _, cell := range s.dataDocker {
		data, err := json.Marshal(cell.Data)
		if err != nil {
			return fmt.Errorf("encode page %d of %s: %w", cell.Page, cell.CrawlID, err)
		}
		args = append(args, cell.CrawlID, cell.Page, cell.URL, string(data), cell.Time.Format(time.RFC3339Nano))
	}
	return s.db.Insert(sqldb.TableData{
		TableName:   s.table,
		ColumnNames: columns,
		Args:        args,
		DataCount:   len(s.dataDocker),
	})
}

// Load returns the stored pages of one crawl in page order. Data holds the
// page result as raw JSON.
func (s *SQLStorage) Load(crawlID string) ([]*storage.DataCell, error) {
	rows, err := s.db.Query(
		fmt.Sprintf("SELECT crawl_id, page, url, data, time FROM %s WHERE crawl_id = ? ORDER BY page", s.table),
		crawlID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cells []*storage.DataCell
	for rows.Next() {
		var (
			cell       storage.DataCell
			data, tstr string
		)
		if err := rows.Scan(&cell.CrawlID, &cell.Page, &cell.URL, &data, &tstr); err != nil {
			return nil, err
		}
		cell.Data = json.RawMessage(data)
		if cell.Time, err = time.Parse(time.RFC3339Nano, tstr); err != nil {
			return nil, fmt.Errorf("page %d time: %w", cell.Page, err)
		}
		cells = append(cells, &cell)
	}
	return cells, rows.Err()
}

// Close flushes pending pages and closes the database.
func (s *SQLStorage) Close() error {
	if err := s.Flush(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}
