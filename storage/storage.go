package storage

import "time"

// DataCell is the extracted result of one crawled page.
type DataCell struct {
	CrawlID string
	Page    int
	URL     string
	Data    any
	Time    time.Time
}

type Storage interface {
	Save(datas ...*DataCell) error
	Flush() error
}
