package dispatcher

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/blockagent/agent/contract"
	nodex "github.com/tanpawarit/blockagent/agent/nodes"
	statex "github.com/tanpawarit/blockagent/agent/state"
	logx "github.com/tanpawarit/blockagent/pkg/logger"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrRouting        = contractx.ErrRouting
)

type Handlers struct {
	DataQuery    contractx.Handler
	Transaction  contractx.Handler
	Conversation contractx.Handler
}

// Dispatcher runs one classify -> route -> handle -> finalize pass per turn.
type Dispatcher struct {
	classifier contractx.IntentClassifier
	handlers   map[contractx.Intent]contractx.Handler

	graphRunner compose.Runnable[nodex.GraphInput, contractx.TurnResult]

	now func() time.Time
}

func New(classifier contractx.IntentClassifier, handlers Handlers) (*Dispatcher, error) {
	if classifier == nil {
		return nil, errors.New("intent classifier is required")
	}
	if handlers.DataQuery == nil || handlers.Transaction == nil || handlers.Conversation == nil {
		return nil, errors.New("data query, transaction and conversation handlers are required")
	}

	d := &Dispatcher{
		classifier: classifier,
		handlers: map[contractx.Intent]contractx.Handler{
			contractx.IntentDataRetrieval: handlers.DataQuery,
			contractx.IntentTransaction:   handlers.Transaction,
			contractx.IntentConversation:  handlers.Conversation,
		},
		now: time.Now,
	}

	graphRunner, err := d.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	d.graphRunner = graphRunner

	return d, nil
}

// Process handles one user turn. A nil session starts a new one, which is
// returned either way. Turns on the same session are serialized. Writes
// made during the turn reach the session only when the turn succeeds and
// ctx is still live.
func (d *Dispatcher) Process(ctx context.Context, query string, session *statex.Session) (contractx.TurnResult, *statex.Session, error) {
	if session == nil {
		session = statex.NewSession(uuid.NewString(), d.now())
	}

	unlock := session.LockTurn()
	defer unlock()

	ctx = logx.WithTurn(ctx, session.ID, uuid.NewString())
	staged := session.Stage()

	out, err := d.graphRunner.Invoke(ctx, nodex.GraphInput{
		Query:  query,
		Memory: staged,
	})
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = errors.Join(ctxErr, err)
	}
	if err != nil {
		staged.Discard()
		log.Ctx(ctx).Error().Err(err).Msg("turn aborted")
		return contractx.TurnResult{}, session, err
	}

	staged.Commit()
	log.Ctx(ctx).Debug().
		Str("status", string(out.Status)).
		Str("outcome", string(out.Outcome)).
		Msg("turn completed")
	return out, session, nil
}

// ResetSession clears the session's messages and entities once any
// in-flight turn has finished.
func (d *Dispatcher) ResetSession(session *statex.Session) {
	if session == nil {
		return
	}
	unlock := session.LockTurn()
	defer unlock()
	session.Reset()
}
