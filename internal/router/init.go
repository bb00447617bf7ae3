package router

import (
	"github.com/storelabs/storefront/internal/application"
	"github.com/storelabs/storefront/internal/container"
	pginfra "github.com/storelabs/storefront/internal/infrastructure/postgres"
	handlers "github.com/storelabs/storefront/internal/interface/http"
	"github.com/storelabs/storefront/internal/router/modules"
)

func buildAuthModule() *modules.AuthModule {
	cfg := container.GetConfig()
	repo := pginfra.NewUserRepository(container.GetPGPool())

	svc := application.NewAuthService(
		repo,
		container.GetJWT(),
		container.GetGCS(),
		cfg.GCSBucket,
		container.GetRabbitPub(),
		container.GetLogger(),
		application.AuthConfig{
			BcryptCost:       cfg.BcryptCost,
			ResetTokenTTL:    cfg.ResetTokenTTL,
			ResetPasswordURL: cfg.ResetPasswordURL,
			StoreName:        cfg.StoreName,
			SupportURL:       cfg.SupportURL,
			MailEnabled:      cfg.MailSendEnabled,
		},
	)

	h := handlers.NewAuthHandler(svc, container.GetLogger(), cfg.CookieDomain, cfg.CookieSecure)
	return modules.NewAuthModule(h, container.GetJWT())
}

func buildCatalogModule() *modules.CatalogModule {
	cfg := container.GetConfig()
	pool := container.GetPGPool()

	svc := application.NewCatalogService(
		pginfra.NewCategoryRepository(pool),
		pginfra.NewProductRepository(pool),
		pginfra.NewReviewRepository(pool),
		container.GetGCS(),
		cfg.GCSBucket,
		container.GetRedis(),
		container.GetES(),
		cfg.ESProductsIndex,
		container.GetLogger(),
	)

	h := handlers.NewCatalogHandler(svc, container.GetLogger())
	return modules.NewCatalogModule(h, container.GetJWT())
}

// InitModules initializes all application modules and registers them with the
// router registry. Called once during startup.
func InitModules(r *Registry) {
	r.Add(buildAuthModule())
	r.Add(buildCatalogModule())
}
