package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zfogg/hushmap/internal/feed"
	"github.com/zfogg/hushmap/internal/geo"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDuplicate    = errors.New("duplicate record")
)

// maxRadiusCandidates caps how many bounding-box rows a radius query loads
// before the exact distance filter runs
var maxRadiusCandidates = 5000

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// withinBounds restricts lat/lng columns to b, handling boxes that wrap the antimeridian
func withinBounds(q *gorm.DB, b geo.Bounds) *gorm.DB {
	q = q.Where("lat BETWEEN ? AND ?", b.South, b.North)
	if b.CrossesAntimeridian() {
		return q.Where("(lng >= ? OR lng <= ?)", b.West, b.East)
	}
	return q.Where("lng BETWEEN ? AND ?", b.West, b.East)
}

// nearestFirst orders rows by squared degree offset from a point, so a capped
// candidate query keeps the closest rows
func nearestFirst(q *gorm.DB, lat, lng float64) *gorm.DB {
	return q.Order(clause.Expr{
		SQL:  "(lat - ?) * (lat - ?) + (lng - ?) * (lng - ?)",
		Vars: []interface{}{lat, lat, lng, lng},
	})
}

func orderBy(q *gorm.DB, s feed.Sort) *gorm.DB {
	column := feed.SortCreatedAt
	if s.Column == feed.SortViews {
		column = feed.SortViews
	}
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: s.Desc})
	if column != feed.SortCreatedAt {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: feed.SortCreatedAt}, Desc: true})
	}
	return q
}
