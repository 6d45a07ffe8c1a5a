package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	dispatcherx "github.com/tanpawarit/blockagent/agent/agents/dispatcher"
	handlerx "github.com/tanpawarit/blockagent/agent/agents/handler"
	"github.com/tanpawarit/blockagent/agent/agents/specialist"
	contractx "github.com/tanpawarit/blockagent/agent/contract"
	llmx "github.com/tanpawarit/blockagent/agent/llm"
	promptx "github.com/tanpawarit/blockagent/agent/prompt"
	statex "github.com/tanpawarit/blockagent/agent/state"
	"github.com/tanpawarit/blockagent/agent/tool"
	configx "github.com/tanpawarit/blockagent/pkg/config"
	logx "github.com/tanpawarit/blockagent/pkg/logger"
	openrouterx "github.com/tanpawarit/blockagent/pkg/openrouter"
)

type AppConfig struct {
	TurnTimeout time.Duration `split_words:"true" default:"2m"`
}

func main() {
	ctx := context.Background()

	logx.Init(*configx.MustNew[logx.Config]("LOG"))

	appCfg := configx.MustNew[AppConfig]("APP")
	llmCfg := configx.MustNew[llmx.Config]("LLM")
	cacheCfg := configx.MustNew[llmx.CacheConfig]("CACHE")
	sessionCfg := configx.MustNew[statex.RegistryConfig]("SESSION")
	subgraphCfg := configx.MustNew[tool.SubgraphConfig]("SUBGRAPH")
	chainCfg := configx.MustNew[tool.ChainConfig]("CHAIN")

	registry, err := specialist.NewRegistry(ctx, *llmCfg, llmx.NewCache[contractx.Classification](*cacheCfg))
	if err != nil {
		log.Fatal().Err(err).Msg("build model registry")
	}

	generatorCfg := llmCfg.OpenRouterFor(contractx.AgentTypeGenerator)
	generator, err := llmx.NewGenerator(openrouterx.NewClient(generatorCfg), generatorCfg, llmx.NewCache[string](*cacheCfg))
	if err != nil {
		log.Fatal().Err(err).Msg("build text generator")
	}

	subgraph, err := tool.NewSubgraphExecutor(*subgraphCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build subgraph executor")
	}
	chain, closeChain, err := tool.DialChainExecutor(ctx, *chainCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect chain executor")
	}
	defer closeChain()

	prompts := promptx.LoadPromptSet()
	dispatcher, err := dispatcherx.New(registry.Classifier(), dispatcherx.Handlers{
		DataQuery: handlerx.NewDataQueryHandler(
			registry.DataQueryExtractor(), tool.NewDataQueryCatalog(subgraph), generator, prompts.DataNarrator),
		Transaction: handlerx.NewTransactionHandler(
			registry.TransactionExtractor(), tool.NewTransactionCatalog(chain), generator, prompts.TransactionNarrator, prompts.SlotClarifier),
		Conversation: handlerx.NewConversationHandler(generator, prompts.Conversation),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build dispatcher")
	}

	chat := &chatLoop{
		turns:    dispatcher,
		sessions: statex.NewRegistry(*sessionCfg),
		timeout:  appCfg.TurnTimeout,
	}
	if err := chat.run(ctx, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("chat loop")
	}
}

type turnProcessor interface {
	Process(ctx context.Context, query string, session *statex.Session) (contractx.TurnResult, *statex.Session, error)
	ResetSession(session *statex.Session)
}

// chatLoop is the line-oriented front end: one line per turn, /reset wipes
// memory, /new starts a fresh session, /quit exits.
type chatLoop struct {
	turns    turnProcessor
	sessions *statex.Registry
	timeout  time.Duration
}

func (c *chatLoop) run(ctx context.Context, in io.Reader, out io.Writer) error {
	prompt := color.New(color.FgCyan, color.Bold)
	agent := color.New(color.FgGreen)
	notice := color.New(color.FgYellow)
	failure := color.New(color.FgRed)

	session := c.sessions.Create()
	notice.Fprintf(out, "BlockAgent ready (session %s). Commands: /reset, /new, /quit\n", session.ID)

	scanner := bufio.NewScanner(in)
	for {
		prompt.Fprint(out, "you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			c.turns.ResetSession(session)
			notice.Fprintln(out, "Memory wiped.")
			continue
		case "/new":
			c.sessions.Delete(session.ID)
			session = c.sessions.Create()
			notice.Fprintf(out, "Started session %s\n", session.ID)
			continue
		}

		live, err := c.sessions.GetOrCreate(session.ID)
		if err != nil {
			failure.Fprintf(out, "Error: %v\n", err)
			continue
		}
		if live != session {
			notice.Fprintf(out, "Session %s expired, memory cleared\n", live.ID)
		}
		session = live

		res, err := c.turn(ctx, line, session)
		if err != nil {
			failure.Fprintf(out, "Error: %v\n", err)
			continue
		}
		agent.Fprintf(out, "agent> %s\n", res.Reply)
	}
	return scanner.Err()
}

func (c *chatLoop) turn(ctx context.Context, line string, session *statex.Session) (contractx.TurnResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	res, _, err := c.turns.Process(ctx, line, session)
	return res, err
}
