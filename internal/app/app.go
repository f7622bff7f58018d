package app

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ERPlora/module-customers/internal/adapters/httpserver"
	"github.com/ERPlora/module-customers/internal/adapters/repo/postgres"
	"github.com/ERPlora/module-customers/internal/domain"
	"github.com/ERPlora/module-customers/internal/usecase"
	"github.com/ERPlora/module-customers/internal/views"
)

const defaultBasePath = "/modules/customers"

type App struct {
	DB        *gorm.DB
	Tmpl      *template.Template
	Customers domain.CustomerRepo
	BasePath  string
}

func NewApp(db *gorm.DB) (*App, error) {
	basePath := os.Getenv("BASE_PATH")
	if basePath == "" {
		basePath = defaultBasePath
	}

	app := &App{
		DB:        db,
		Customers: postgres.NewCustomerRepo(db),
		BasePath:  basePath,
	}

	funcMap := template.FuncMap{
		"money": func(v float64) string { return fmt.Sprintf("%.2f €", v) },
	}

	appEnv := strings.ToLower(os.Getenv("APP_ENV"))
	isDev := appEnv == "" || appEnv == "development" || appEnv == "dev"

	var tmpl *template.Template
	var err error

	if isDev {
		tmpl, err = template.New("views").Funcs(funcMap).ParseGlob("internal/views/pages/*.html")
		if err != nil {
			return nil, err
		}
		_, err = tmpl.ParseGlob("internal/views/partials/*.html")
		if err != nil {
			return nil, err
		}
	} else {
		tmpl, err = template.New("views").Funcs(funcMap).ParseFS(views.FS, "pages/*.html", "partials/*.html")
		if err != nil {
			return nil, err
		}
	}

	app.Tmpl = tmpl

	return app, nil
}

// HTTPHandler arma el módulo completo. Se llama después de MigrateAndSeed:
// la fuente de ventas solo se cablea si la tabla sales existe en ese
// momento; sin ella las estadísticas quedan en no-op.
func (a *App) HTTPHandler() http.Handler {
	uc := &usecase.CustomerUC{Customers: a.Customers}
	if postgres.HasSalesTable(a.DB) {
		uc.Sales = postgres.NewSaleSource(a.DB)
	}
	ping := func(ctx context.Context) error {
		sqlDB, err := a.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
	return httpserver.New(a.Tmpl, uc, a.BasePath, ping)
}

func (a *App) MigrateAndSeed(demo bool) error {
	if err := a.DB.AutoMigrate(&domain.Customer{}); err != nil {
		return err
	}

	// Los índices de name/phone/email salen de las tags del modelo; el de
	// created_at necesita orden DESC y va en crudo.
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_customers_created_at ON customers(created_at DESC)").Error

	if demo {
		if err := a.DB.AutoMigrate(&domain.Sale{}); err != nil {
			return err
		}
		seedDemo(a.DB)
	}
	return nil
}

func seedDemo(db *gorm.DB) {
	var n int64
	db.Model(&domain.Customer{}).Count(&n)
	if n > 0 {
		return
	}

	customers := []domain.Customer{
		{Name: "María García", Email: "maria@example.com", Phone: "600123456", TaxID: "12345678Z", IsActive: true},
		{Name: "Juan Pérez", Email: "juan@example.com", Phone: "611234567", IsActive: true},
		{Name: "Comercial Ortega SL", Email: "pedidos@ortega.example", TaxID: "B76543210", IsActive: true},
		{Name: "Lucía Fernández", Phone: "622345678", IsActive: false},
	}
	for i := range customers {
		db.Create(&customers[i])
	}

	now := time.Now()
	sales := []domain.Sale{
		{CustomerName: "María García", Status: domain.SaleStatusCompleted, Total: 49.90, CreatedAt: now.AddDate(0, 0, -12)},
		{CustomerName: "María García", Status: domain.SaleStatusCompleted, Total: 15.50, CreatedAt: now.AddDate(0, 0, -3)},
		{CustomerName: "María García", Status: "pending", Total: 99.00, CreatedAt: now.AddDate(0, 0, -1)},
		{CustomerName: "Juan Pérez", Status: domain.SaleStatusCompleted, Total: 120.00, CreatedAt: now.AddDate(0, -1, 0)},
	}
	for i := range sales {
		db.Create(&sales[i])
	}
}
