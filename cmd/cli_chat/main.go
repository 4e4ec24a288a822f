package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"rmi/internal/config"
	"rmi/internal/db"
	"rmi/internal/domain"
	"rmi/internal/engine"
	"rmi/internal/llm"
	"rmi/internal/repository"
	"rmi/internal/service"
)

func main() {
	email := flag.String("email", "cli_test@example.com", "usuario con el que se conversa")
	flag.Parse()

	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	pool, err := db.Connect(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	lexicon, err := engine.LoadLexicon(cfg.LexiconPath)
	if err != nil {
		log.Fatalf("cargar lexicon: %v", err)
	}
	eng := engine.New(lexicon)

	llmClient, err := llm.NewClient(cfg.LLMProvider, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout(), logger)
	if err != nil {
		log.Fatal(err)
	}

	userRepo := repository.NewPgUserRepository(pool)
	messageRepo := repository.NewPgChatMessageRepository(pool)
	stateSvc := service.NewStateService(logger, repository.NewPgUserStateRepository(pool), repository.NewPgInteractionEventRepository(pool), nil, 0)
	networkSvc := service.NewNetworkService(logger, repository.NewPgContactRepository(pool), stateSvc, nil, cfg.ContactCacheTTL())
	replySvc := service.NewReplyService(logger, llmClient, eng, nil, cfg.LLMTimeout())
	chatSvc := service.NewChatService(logger, messageRepo, networkSvc, stateSvc, replySvc, eng, nil)
	insightSvc := service.NewInsightService(logger, messageRepo, networkSvc, stateSvc, eng, nil)

	user, err := ensureUser(ctx, userRepo, *email)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Usuario: %s (lexicon %s)\n", user.Email, lexicon.Version())

	for {
		fmt.Println("\n===== RMI =====")
		fmt.Println("[1] Chatear")
		fmt.Println("[2] Ver red")
		fmt.Println("[3] Agregar contacto")
		fmt.Println("[4] Ajustar E_user")
		fmt.Println("[5] Ver métricas")
		fmt.Println("[6] Registrar contacto real")
		fmt.Println("[7] Salir")
		fmt.Print("Selecciona una opcion: ")

		line, _ := reader.ReadString('\n')
		switch strings.TrimSpace(line) {
		case "1":
			if err := chatFlow(ctx, reader, chatSvc, user.ID); err != nil {
				fmt.Printf("Error en chat: %v\n", err)
			}
		case "2":
			if err := listNetwork(ctx, networkSvc, user.ID); err != nil {
				fmt.Printf("Error listando red: %v\n", err)
			}
		case "3":
			if err := addContactFlow(ctx, reader, networkSvc, user.ID); err != nil {
				fmt.Printf("Error creando contacto: %v\n", err)
			}
		case "4":
			v := readIntDefault(reader, "E_user (0-100): ", domain.DefaultEmotion)
			if _, err := stateSvc.SetEmotion(ctx, user.ID, v); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "5":
			if err := printInsight(ctx, insightSvc, user.ID); err != nil {
				fmt.Printf("Error calculando metricas: %v\n", err)
			}
		case "6":
			if err := completeFlow(ctx, reader, networkSvc, user.ID); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "7":
			return
		default:
			fmt.Println("Opcion invalida.")
		}
	}
}

func chatFlow(ctx context.Context, reader *bufio.Reader, chatSvc *service.ChatService, userID string) error {
	fmt.Println("---- Modo Chat (escribe 'salir' para terminar chat) ----")
	for {
		fmt.Print("Tu > ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("leer input: %w", err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if strings.EqualFold(text, "salir") || strings.EqualFold(text, "exit") {
			fmt.Println("Saliendo del chat...")
			return nil
		}

		res, err := chatSvc.SendMessage(ctx, userID, text)
		if err != nil {
			fmt.Printf("error enviando mensaje: %v\n", err)
			continue
		}
		a := res.Assessment
		fmt.Printf("  [%s] E_sys=%d E_final=%d AIC=%d RII=%d riesgo=%s\n",
			a.Mode.Label(), a.ESys, a.EFinal, a.AIC, a.RII, a.Risk)
		for i, s := range a.Suggestions {
			fmt.Printf("  sugerencia %d: %s (%.2f)\n", i+1, s.Contact.Name, s.Score)
		}
		if resp := res.AIMessage.Response; resp != nil {
			fmt.Printf("RMI (%s, safety=%s) > %s\n", resp.Mode, resp.SafetyFlags, resp.ResponseText)
			for _, rc := range resp.RecommendedContacts {
				fmt.Printf("  -> %s: %s\n", rc.Name, rc.Reason)
			}
			for _, b := range resp.Buttons {
				fmt.Printf("  [%s]\n", b.Label)
			}
			continue
		}
		fmt.Printf("RMI > %s\n", res.AIMessage.Text)
	}
}

func listNetwork(ctx context.Context, networkSvc *service.NetworkService, userID string) error {
	contacts, err := networkSvc.ListContacts(ctx, userID)
	if err != nil {
		return err
	}
	if len(contacts) == 0 {
		fmt.Println("La red esta vacia.")
		return nil
	}
	for i, c := range contacts {
		fmt.Printf("[%d] %s | %s | %s | %v | %s\n", i+1, c.Name, c.Ring, c.Group, c.SupportTypes, c.LastInteraction)
	}
	return nil
}

func addContactFlow(ctx context.Context, reader *bufio.Reader, networkSvc *service.NetworkService, userID string) error {
	in := service.ContactInput{
		Name:  readLine(reader, "Nombre: "),
		Ring:  domain.Ring(readLine(reader, "Anillo (Inner/Middle/Outer): ")),
		Group: domain.Group(readLine(reader, "Grupo (Family/Friends/Colleagues/Community/Other): ")),
	}
	for _, s := range strings.Split(readLine(reader, "Apoyo (Emotional,Practical,Daily,Professional,Other): "), ",") {
		if s = strings.TrimSpace(s); s != "" {
			in.SupportTypes = append(in.SupportTypes, domain.SupportType(s))
		}
	}
	in.LastInteraction = readLine(reader, "Ultimo contacto (AAAA-MM-DD o vacio): ")

	c, err := networkSvc.AddContact(ctx, userID, in)
	if err != nil {
		return err
	}
	fmt.Printf("Contacto creado: %s (%s)\n", c.Name, c.ID)
	return nil
}

func completeFlow(ctx context.Context, reader *bufio.Reader, networkSvc *service.NetworkService, userID string) error {
	contacts, err := networkSvc.ListContacts(ctx, userID)
	if err != nil {
		return err
	}
	if err := listNetwork(ctx, networkSvc, userID); err != nil {
		return err
	}
	idx := readIntDefault(reader, "Contacto: ", 0)
	if idx < 1 || idx > len(contacts) {
		return errors.New("seleccion invalida")
	}
	c, err := networkSvc.CompleteContactFlow(ctx, userID, contacts[idx-1].ID)
	if err != nil {
		return err
	}
	fmt.Printf("Registrado contacto con %s (%s)\n", c.Name, c.LastInteraction)
	return nil
}

func printInsight(ctx context.Context, insightSvc *service.InsightService, userID string) error {
	snap, err := insightSvc.Snapshot(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Printf("Modo: %s\n", snap.ModeLabel)
	fmt.Printf("E_user=%d E_sys=%d E_final=%d\n", snap.EUser, snap.ESys, snap.EFinal)
	fmt.Printf("AIC=%d%% RII=%d%% (sesiones IA=%d, eventos reales=%d)\n", snap.AIC, snap.RII, snap.AISessionCount, snap.RealEventCount)
	for i, s := range snap.Suggestions {
		fmt.Printf("  %d. %s RAS=%.2f (D=%.2f T=%.2f S=%.2f R=%.0f)\n", i+1, s.Contact.Name, s.Score, s.Distance, s.Recency, s.Support, s.Mention)
	}
	return nil
}

func readLine(reader *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func readIntDefault(reader *bufio.Reader, prompt string, def int) int {
	line := readLine(reader, prompt)
	if line == "" {
		return def
	}
	if v, err := strconv.Atoi(line); err == nil {
		return v
	}
	return def
}

func ensureUser(ctx context.Context, repo repository.UserRepository, email string) (domain.User, error) {
	u, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	u = domain.User{
		ID:          uuid.NewString(),
		Email:       strings.ToLower(email),
		DisplayName: "cli",
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.Create(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
