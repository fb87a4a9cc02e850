package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"stockroom/internal/inventory/models"
	"stockroom/internal/platform/config"
	"stockroom/internal/source/origin/mocks"
	"stockroom/internal/source/sqlsource"
	"stockroom/pkg/platform/sentinel"
)

const stockCSV = `"Product ID","Product Name","Product Qty","Product Note"
A1,Widget,5,foo
B2,Gadget,,
A1,Widget,3,bar
C3,Sprocket,many,
`

type StoreSuite struct {
	suite.Suite
	ctx context.Context
	dir string
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.dir = s.T().TempDir()
}

func (s *StoreSuite) write(name, body string) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(body), 0o600))
	return path
}

func (s *StoreSuite) load(st *Store) *Repository {
	s.T().Cleanup(func() { _ = st.Close() })
	repo, err := st.Load(s.ctx)
	s.Require().NoError(err)
	return repo
}

// assertStock checks the repository built from the shared fixture rows.
func (s *StoreSuite) assertStock(repo *Repository) {
	s.Equal(2, repo.Len())
	a1, ok := repo.Get("A1")
	s.Require().True(ok)
	s.Require().NotNil(a1.Quantity)
	s.Equal(uint64(8), *a1.Quantity)
	s.Require().NotNil(a1.Note)
	s.Equal("barfoo", *a1.Note)

	b2, ok := repo.Get("B2")
	s.Require().True(ok)
	s.Nil(b2.Quantity)
	s.Nil(b2.Note)
}

func (s *StoreSuite) TestCSVFile() {
	path := s.write("stock.csv", stockCSV)
	var skipped []error
	st, err := Open(s.ctx, config.Source{Kind: config.KindCSV, Origin: path, CSV: config.CSV{Comma: ','}},
		WithSkipFunc(func(err error) { skipped = append(skipped, err) }))
	s.Require().NoError(err)

	s.assertStock(s.load(st))
	s.Require().Len(skipped, 1)
	s.ErrorIs(skipped[0], sentinel.ErrMalformed)

	got, ok := st.Path()
	s.True(ok)
	s.Equal(path, got)
}

func (s *StoreSuite) TestCSVThroughOpener() {
	ctrl := gomock.NewController(s.T())
	opener := mocks.NewMockOpener(ctrl)
	opener.EXPECT().String().Return("mock://stock.csv").AnyTimes()
	opener.EXPECT().Open(gomock.Any()).Return(io.NopCloser(strings.NewReader(stockCSV)), nil)

	st, err := Open(s.ctx, config.Source{Kind: config.KindCSV, CSV: config.CSV{Comma: ','}}, WithOpener(opener))
	s.Require().NoError(err)
	s.assertStock(s.load(st))
	s.Equal("csv:mock://stock.csv", st.String())
}

func (s *StoreSuite) TestCSVKeepsQuotesAndEmptyIDs() {
	path := s.write("stock.csv", `Product ID,Product Name,Product Qty,Product Note
b-1,3/4" bolt,10,
,Unlabelled crate,2,
w-1,Widget,5,
,Unlabelled crate,1,loose
`)
	var skipped []error
	st, err := Open(s.ctx, config.Source{Kind: config.KindCSV, Origin: path, CSV: config.CSV{Comma: ','}},
		WithSkipFunc(func(err error) { skipped = append(skipped, err) }))
	s.Require().NoError(err)

	repo := s.load(st)
	s.Empty(skipped)
	s.Equal(3, repo.Len())

	bolt, ok := repo.Get("b-1")
	s.Require().True(ok)
	s.Equal(`3/4" bolt`, bolt.Name)

	crate, ok := repo.Get("")
	s.Require().True(ok)
	s.Equal(uint64(3), *crate.Quantity)
	s.Equal("loose", *crate.Note)
}

func (s *StoreSuite) TestYAMLEmptyIDIsKept() {
	path := s.write("stock.yaml", `
- Product ID: ""
  Product Name: Unlabelled crate
  Product Qty: 2
- Product Name: Nameless
`)
	var skipped []error
	st, err := Open(s.ctx, config.Source{Kind: config.KindYAML, Origin: path},
		WithSkipFunc(func(err error) { skipped = append(skipped, err) }))
	s.Require().NoError(err)

	repo := s.load(st)
	s.Equal(1, repo.Len())
	crate, ok := repo.Get("")
	s.Require().True(ok)
	s.Equal("Unlabelled crate", crate.Name)
	s.Require().Len(skipped, 1)
	s.ErrorIs(skipped[0], sentinel.ErrMalformed)
}

func (s *StoreSuite) TestYAMLFile() {
	path := s.write("stock.yaml", `
items:
  - Product ID: A1
    Product Name: Widget
    Product Qty: 5
    Product Note: foo
  - Product ID: B2
    Product Name: Gadget
  - Product ID: A1
    Product Name: Widget
    Product Qty: 3
    Product Note: bar
  - Product Name: Nameless
`)
	st, err := Open(s.ctx, config.Source{Kind: config.KindYAML, Origin: path, YAML: config.YAML{Key: "items"}})
	s.Require().NoError(err)
	s.assertStock(s.load(st))
}

func (s *StoreSuite) TestSQLite() {
	dsn := filepath.Join(s.dir, "stock.db")
	db, err := sqlsource.Open(s.ctx, "sqlite", dsn)
	s.Require().NoError(err)
	_, err = db.ExecContext(s.ctx, `CREATE TABLE items (seq INTEGER PRIMARY KEY, id TEXT, name TEXT, quantity INTEGER, note TEXT)`)
	s.Require().NoError(err)
	_, err = db.ExecContext(s.ctx, `
		INSERT INTO items (id, name, quantity, note) VALUES
			('A1', 'Widget', 5, 'foo'),
			('B2', 'Gadget', NULL, NULL),
			('A1', 'Widget', 3, 'bar'),
			(NULL, 'Orphan', 1, NULL),
			('C3', 'Sprocket', -4, NULL)
	`)
	s.Require().NoError(err)
	s.Require().NoError(db.Close())

	var skipped []error
	st, err := Open(s.ctx, config.Source{
		Kind: config.KindSQL,
		SQL:  config.SQL{Driver: "sqlite", DSN: dsn, Query: `SELECT id, name, quantity, note FROM items ORDER BY seq`},
	}, WithSkipFunc(func(err error) { skipped = append(skipped, err) }))
	s.Require().NoError(err)

	s.assertStock(s.load(st))
	s.Len(skipped, 2)
	_, ok := st.Path()
	s.False(ok)
}

func (s *StoreSuite) TestOpenFailures() {
	s.Run("invalid configuration", func() {
		_, err := Open(s.ctx, config.Source{Kind: "ftp"})
		s.ErrorIs(err, sentinel.ErrInvalidConfig)

		_, err = Open(s.ctx, config.Source{Kind: config.KindCSV})
		s.ErrorIs(err, sentinel.ErrInvalidConfig)
	})

	s.Run("unreachable database", func() {
		_, err := Open(s.ctx, config.Source{
			Kind: config.KindSQL,
			SQL:  config.SQL{Driver: "sqlite", DSN: filepath.Join(s.dir, "missing", "dir", "stock.db"), Query: "SELECT 1"},
		})
		s.ErrorIs(err, sentinel.ErrUnavailable)
	})

	s.Run("missing file surfaces at load", func() {
		st, err := Open(s.ctx, config.Source{Kind: config.KindCSV, Origin: filepath.Join(s.dir, "absent.csv")})
		s.Require().NoError(err)
		_, err = st.Load(s.ctx)
		s.ErrorIs(err, sentinel.ErrUnavailable)
	})
}

func (s *StoreSuite) TestScanItem() {
	item, err := ScanItem(scanner(func(dest ...any) error {
		*dest[0].(*string) = "A1"
		*dest[1].(*string) = "Widget"
		return nil
	}))
	s.Require().NoError(err)
	s.Equal(models.Item{ProductID: "A1", Name: "Widget"}, item)

	item, err = ScanItem(scanner(func(dest ...any) error {
		*dest[1].(*string) = "Unlabelled crate"
		return nil
	}))
	s.Require().NoError(err)
	s.Equal(models.Item{Name: "Unlabelled crate"}, item)
}

type scanner func(dest ...any) error

func (f scanner) Scan(dest ...any) error { return f(dest...) }
