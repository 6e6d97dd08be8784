package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

type App struct {
	DB        *pgxpool.Pool
	Loc       *time.Location
	Clock     clockwork.Clock
	JWTSecret []byte
	Logins    LoginLimiter

	SMS     SMSSender
	Bot     BotSender
	Geo     Geocoder
	Recipes RecipeProvider
	Images  ImageHost
	AI      ChatProvider
}

func main() {
	// .env is optional; in deployment everything comes from the environment.
	_ = godotenv.Load()

	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	loc := time.Local
	tz := os.Getenv("APP_TIMEZONE")
	if tz != "" {
		loaded, err := time.LoadLocation(tz)
		if err != nil {
			log.Printf("invalid APP_TIMEZONE=%q, falling back to local: %v", tz, err)
		} else {
			loc = loaded
		}
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	clk := clockwork.NewRealClock()
	app := &App{
		DB:        db,
		Loc:       loc,
		Clock:     clk,
		JWTSecret: []byte(secret),
		Logins:    NewMemoryLoginLimiter(clk, 5, 15*time.Minute),
	}

	if sid, tok, from := os.Getenv("TWILIO_ACCOUNT_SID"), os.Getenv("TWILIO_AUTH_TOKEN"), os.Getenv("TWILIO_FROM_NUMBER"); sid != "" && tok != "" {
		app.SMS = NewTwilioClient(sid, tok, from)
	} else {
		log.Printf("twilio not configured, sms dispatch disabled")
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		bot, err := tgbotapi.NewBotAPI(token)
		if err != nil {
			log.Printf("telegram bot init failed, alerts disabled: %v", err)
		} else {
			log.Printf("telegram bot authorized as %s", bot.Self.UserName)
			app.Bot = &TelegramSender{Bot: bot}
		}
	}
	if key := os.Getenv("OPENCAGE_API_KEY"); key != "" {
		app.Geo = NewOpenCageClient(key)
	}
	if key := os.Getenv("SPOONACULAR_API_KEY"); key != "" {
		app.Recipes = NewSpoonacularClient(key)
	}
	if key := os.Getenv("IMGBB_API_KEY"); key != "" {
		app.Images = NewImgbbClient(key)
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		app.AI = NewGeminiClient(key)
	}

	sweeper := &Sweeper{
		List:  app.listBirthdaysWithPhone,
		Send:  app.sendSMS,
		Clock: clk,
		Loc:   loc,
	}
	if err := sweeper.Start(); err != nil {
		log.Fatalf("start birthday sweep: %v", err)
	}
	defer func() { _ = sweeper.Stop() }()

	r := chi.NewRouter()
	r.Use(middleware.RealIP, middleware.RequestID, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())
			log.Printf("[api-debug] req_id=%s method=%s path=%s query=%q content_length=%d remote=%s",
				reqID, r.Method, r.URL.Path, r.URL.RawQuery, r.ContentLength, r.RemoteAddr)
			next.ServeHTTP(ww, r)
			log.Printf("[api-debug] req_id=%s status=%d bytes=%d duration_ms=%d",
				reqID, ww.Status(), ww.BytesWritten(), time.Since(start).Milliseconds())
		})
	})
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Options("/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"ok": true, "time": app.now().Format(time.RFC3339)})
	})

	r.Post("/auth/signup", app.HandleSignup)
	r.Post("/auth/login", app.HandleLogin)

	r.Group(func(r chi.Router) {
		r.Use(app.RequireAuth)

		r.Get("/birthdays", app.HandleListBirthdays)
		r.Get("/birthdays/dashboard", app.HandleBirthdayDashboard)
		r.Post("/birthdays", app.HandleCreateBirthday)
		r.Put("/birthdays/{id}", app.HandleUpdateBirthday)
		r.Delete("/birthdays/{id}", app.HandleDeleteBirthday)
		r.Post("/birthdays/send-sms", app.HandleSendBirthdaySMS)

		r.Get("/caretaker", app.HandleGetCaretaker)
		r.Post("/caretaker", app.HandleCreateCaretaker)
		r.Put("/caretaker", app.HandleUpdateCaretaker)
		r.Delete("/caretaker", app.HandleDeleteCaretaker)
		r.Post("/caretaker/convertaddress", app.HandleConvertAddress)
		r.Post("/caretaker/send-message", app.HandleSendCaretakerMessage)

		r.Get("/meals", app.HandleListMeals)
		r.Post("/meals", app.HandleCreateMeal)
		r.Get("/meals/{id}", app.HandleGetMeal)
		r.Put("/meals/{id}", app.HandleUpdateMeal)
		r.Delete("/meals/{id}", app.HandleDeleteMeal)
		r.Get("/meals/{id}/recipe", app.HandleGetMealRecipe)

		r.Get("/meal-plans", app.HandleListMealPlans)
		r.Post("/meal-plans", app.HandleCreateMealPlan)
		r.Put("/meal-plans/{id}", app.HandleUpdateMealPlan)
		r.Delete("/meal-plans/{id}", app.HandleDeleteMealPlan)

		r.Get("/grocery", app.HandleListGrocery)
		r.Post("/grocery", app.HandleCreateGroceryItem)
		r.Put("/grocery/{id}", app.HandleUpdateGroceryItem)
		r.Delete("/grocery/{id}", app.HandleDeleteGroceryItem)
		r.Post("/grocery/generate", app.HandleGenerateGrocery)

		r.Get("/appointments", app.HandleListAppointments)
		r.Post("/appointments", app.HandleCreateAppointment)
		r.Put("/appointments/{id}", app.HandleUpdateAppointment)
		r.Delete("/appointments/{id}", app.HandleDeleteAppointment)

		r.Get("/topics", app.HandleListTopics)
		r.Post("/topics", app.HandleCreateTopic)
		r.Put("/topics/{id}", app.HandleUpdateTopic)
		r.Delete("/topics/{id}", app.HandleDeleteTopic)
		r.Get("/topics/{id}/trivia", app.HandleListTrivia)
		r.Post("/trivia", app.HandleCreateTrivia)
		r.Put("/trivia/{id}", app.HandleUpdateTrivia)
		r.Delete("/trivia/{id}", app.HandleDeleteTrivia)

		r.Get("/photos", app.HandleListPhotos)
		r.Post("/photos", app.HandleUploadPhoto)
		r.Get("/photos/{id}", app.HandleGetPhoto)
		r.Delete("/photos/{id}", app.HandleDeletePhoto)

		r.Post("/chat", app.HandleChat)
	})

	srv := &http.Server{Addr: ":" + port, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	log.Printf("api listening on :%s", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) now() time.Time {
	if a.Loc == nil {
		return a.Clock.Now()
	}
	return a.Clock.Now().In(a.Loc)
}
