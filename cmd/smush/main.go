package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"smush/internal/app"
	"smush/internal/config"
	"smush/internal/domain"
	"smush/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	reader := bufio.NewReader(os.Stdin)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	figure.NewFigure("smush", "cybermedium", true).Print()
	fmt.Println()

	notifier := newConsoleNotifier(os.Stdout)
	a, err := app.New(ctx, cfg, logger, notifier, service.WithNavigator(service.NavigatorFunc(func(route string) {
		fmt.Printf("-> %s\n", route)
	})))
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()
	a.Start(ctx)
	// El CLI ya imprime por consola; lo acumulado no se muestra de nuevo.
	a.Notices.Drain()

	for {
		if ctx.Err() != nil {
			return
		}
		a.Notices.Drain()
		if a.Session.Current() == nil {
			if !loggedOutMenu(ctx, reader, a) {
				return
			}
			continue
		}
		if !mainMenu(ctx, reader, a) {
			return
		}
	}
}

func loggedOutMenu(ctx context.Context, reader *bufio.Reader, a *app.App) bool {
	fmt.Println("\n===== smush =====")
	fmt.Println("[1] Iniciar sesion")
	fmt.Println("[2] Registrarse")
	fmt.Println("[3] Olvide mi contraseña")
	fmt.Println("[0] Salir")
	switch prompt(reader, "Selecciona una opcion: ") {
	case "1":
		email := prompt(reader, "Email: ")
		password := prompt(reader, "Contraseña: ")
		user, err := a.Session.LogIn(ctx, domain.Credentials{Email: email, Password: password})
		if err != nil {
			printError("No se pudo iniciar sesion", err)
			return true
		}
		fmt.Printf("Hola %s.\n", user.UserName)
		a.WaitLoads()
	case "2":
		reg := domain.Registration{
			UserName:        prompt(reader, "Usuario: "),
			EmailAddress:    prompt(reader, "Email: "),
			Password:        prompt(reader, "Contraseña: "),
			ConfirmPassword: prompt(reader, "Repite la contraseña: "),
		}
		if _, err := a.Session.Register(ctx, reg); err != nil {
			printError("No se pudo registrar", err)
			return true
		}
		fmt.Println("Cuenta creada. Ya puedes iniciar sesion.")
	case "3":
		if err := a.Session.RequestPasswordReset(ctx, prompt(reader, "Email: ")); err != nil {
			printError("No se pudo pedir el restablecimiento", err)
			return true
		}
		fmt.Println("Si el email existe, recibiras un enlace.")
	case "0", "":
		return false
	default:
		fmt.Println("Opcion invalida.")
	}
	return true
}

func mainMenu(ctx context.Context, reader *bufio.Reader, a *app.App) bool {
	user := a.Session.Current()
	fmt.Printf("\n--- %s ---\n", strings.ToUpper(user.UserName))
	fmt.Println("[1] Ver partidas")
	fmt.Println("[2] Registrar partida")
	fmt.Println("[3] Uso de personajes rivales")
	fmt.Println("[4] Cambiar nombre de usuario")
	fmt.Println("[5] Recargar datos")
	fmt.Println("[6] Cerrar sesion")
	fmt.Println("[0] Salir")
	switch prompt(reader, "Selecciona una opcion: ") {
	case "1":
		printMatches(os.Stdout, a.Caches.Matches.Items(), a.Caches.Matches.Highlights())
	case "2":
		recordMatchFlow(ctx, reader, a)
	case "3":
		printUsage(os.Stdout, service.CharacterUsage(a.Caches.Matches.Items(), service.UsageFilter{UserID: user.UserID}, service.UsageSortUse, service.SortDesc))
	case "4":
		name := prompt(reader, "Nuevo nombre: ")
		if _, err := a.Profile.UpdateProfile(ctx, domain.ProfileUpdate{UserName: name}); err != nil {
			printError("No se pudo actualizar el perfil", err)
		}
	case "5":
		if err := a.Caches.LoadAll(ctx, user); err != nil {
			printError("Carga incompleta", err)
		}
	case "6":
		a.Session.LogOut(ctx)
	case "0", "":
		return false
	default:
		fmt.Println("Opcion invalida.")
	}
	return true
}

func recordMatchFlow(ctx context.Context, reader *bufio.Reader, a *app.App) {
	characters := a.Caches.Characters.Items()
	draft := a.Form.NewDraft()

	wait := a.Config.SearchDebounce
	opponent, ok := pickCharacter(ctx, reader, characters, wait, "Personaje rival")
	if ok {
		draft.Match.OpponentCharacterID = opponent.CharacterID
	}
	if mine, ok := pickCharacter(ctx, reader, characters, wait, "Tu personaje (vacio = default)"); ok {
		draft.Match.UserCharacterID = domain.Ptr(mine.CharacterID)
	}
	if gsp := prompt(reader, fmt.Sprintf("Tu GSP [%s]: ", draft.UserGsp)); gsp != "" {
		draft.UserGsp = gsp
	}
	draft.OpponentGsp = prompt(reader, "GSP rival: ")
	switch strings.ToLower(prompt(reader, "¿Ganaste? [s/n]: ")) {
	case "s", "si", "y":
		draft.Match.UserWin = domain.Ptr(true)
	case "n", "no":
		draft.Match.UserWin = domain.Ptr(false)
	}

	if _, _, err := a.Form.Record(ctx, draft); err != nil {
		printError("Partida no registrada", err)
		return
	}
	fmt.Println("Partida registrada.")
}

// pickCharacter busca con el typeahead y deja elegir entre los resultados.
func pickCharacter(ctx context.Context, reader *bufio.Reader, characters []domain.Character, wait time.Duration, label string) (domain.Character, bool) {
	results := searchCharacters(ctx, reader, os.Stdout, characters, wait, label)
	switch len(results) {
	case 0:
		return domain.Character{}, false
	case 1:
		fmt.Printf("  -> %s\n", results[0].CharacterName)
		return results[0], true
	}
	idx := readIntDefault(reader, "Elige: ", 1)
	if idx < 1 || idx > len(results) {
		return domain.Character{}, false
	}
	return results[idx-1], true
}

// searchCharacters lee términos hasta una línea vacía. Cada término que pasa
// el debounce muestra sus coincidencias; devuelve las del último.
func searchCharacters(ctx context.Context, reader *bufio.Reader, w io.Writer, characters []domain.Character, wait time.Duration, label string) []domain.Character {
	ahead := service.NewTypeahead(func(c domain.Character) string { return c.CharacterName })
	terms := make(chan string)
	debounced := service.Debounce(ctx, terms, wait)

	done := make(chan []domain.Character, 1)
	go func() {
		var last []domain.Character
		for term := range debounced {
			last = ahead.Search(characters, term)
			printCandidates(w, term, last)
		}
		done <- last
	}()

	fmt.Fprintf(w, "%s (enter vacio para terminar)\n", label)
	for {
		term := prompt(reader, "> ")
		if term == "" {
			break
		}
		select {
		case terms <- term:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(terms)
	return <-done
}

func printCandidates(w io.Writer, term string, results []domain.Character) {
	if len(results) == 0 {
		fmt.Fprintf(w, "  Sin coincidencias para %q.\n", term)
		return
	}
	for i, c := range results {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, c.CharacterName)
	}
}

func printMatches(w io.Writer, matches []domain.Match, highlights *service.Highlights) {
	if matches == nil {
		fmt.Fprintln(w, "Partidas aun no cargadas.")
		return
	}
	if len(matches) == 0 {
		fmt.Fprintln(w, "No hay partidas.")
		return
	}
	for _, m := range service.SortMatches(matches, service.MatchColumnCreated, service.SortDesc) {
		marker := " "
		if highlights != nil && highlights.IsNew(m.MatchID) {
			marker = "*"
		}
		result := "-"
		if m.UserWin != nil {
			if *m.UserWin {
				result = "W"
			} else {
				result = "L"
			}
		}
		created := ""
		if m.Created != nil {
			created = m.Created.Local().Format(time.DateOnly)
		}
		mine := ""
		if m.UserCharacterName != nil {
			mine = *m.UserCharacterName
		}
		fmt.Fprintf(w, "%s %-10s %s %-16s vs %-16s %12s\n", marker, created, result, mine, m.OpponentCharacterName, service.FormatGspPtr(m.UserCharacterGsp))
	}
}

func printUsage(w io.Writer, usage []service.UsagePoint) {
	if len(usage) == 0 {
		fmt.Fprintln(w, "Sin datos para mostrar.")
		return
	}
	for _, p := range usage {
		fmt.Fprintf(w, "%-20s %5.1f%%\n", p.Name, p.Percent)
	}
}

// newLogger deja en producción sólo warn y error para no pisar el menú.
func newLogger(cfg *config.Config) *zap.Logger {
	if cfg.Development() {
		if logger, err := zap.NewDevelopment(); err == nil {
			return logger
		}
		return zap.NewNop()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func printError(prefix string, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		// Las advertencias ya salieron como toasts.
		return
	}
	fmt.Printf("%s: %v\n", prefix, err)
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func readIntDefault(reader *bufio.Reader, label string, def int) int {
	text := prompt(reader, label)
	if text == "" {
		return def
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return def
	}
	return v
}
