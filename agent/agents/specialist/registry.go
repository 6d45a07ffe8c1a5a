package specialist

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/blockagent/agent/contract"
	llmx "github.com/tanpawarit/blockagent/agent/llm"
	promptx "github.com/tanpawarit/blockagent/agent/prompt"
)

type registryImpl struct {
	classifier  contractx.IntentClassifier
	dataQuery   contractx.Extractor
	transaction contractx.Extractor
}

func (r *registryImpl) Classifier() contractx.IntentClassifier {
	return r.classifier
}

func (r *registryImpl) DataQueryExtractor() contractx.Extractor {
	return r.dataQuery
}

func (r *registryImpl) TransactionExtractor() contractx.Extractor {
	return r.transaction
}

// NewRegistry builds the classifier and both extractors, each on the model
// configured for its role.
func NewRegistry(ctx context.Context, cfg llmx.Config, cache *llmx.Cache[contractx.Classification]) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	models := make(map[contractx.AgentType]einomodel.BaseChatModel, 3)
	for _, agentType := range []contractx.AgentType{
		contractx.AgentTypeClassifier,
		contractx.AgentTypeDataQuery,
		contractx.AgentTypeTransaction,
	} {
		modelCfg := cfg.OpenRouterFor(agentType)
		chatModel, err := modelCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, agentType, err)
		}
		models[agentType] = chatModel
	}

	return newRegistry(ctx, models, promptx.LoadPromptSet(), cache)
}

func newRegistry(
	ctx context.Context,
	models map[contractx.AgentType]einomodel.BaseChatModel,
	prompts promptx.PromptSet,
	cache *llmx.Cache[contractx.Classification],
) (*registryImpl, error) {
	if err := prompts.Validate(); err != nil {
		return nil, err
	}

	classifier, err := newClassifier(ctx, models[contractx.AgentTypeClassifier], prompts.Classifier, cache)
	if err != nil {
		return nil, err
	}
	dataQuery, err := newExtractor(ctx, contractx.AgentTypeDataQuery, models[contractx.AgentTypeDataQuery], prompts.DataQuery)
	if err != nil {
		return nil, err
	}
	transaction, err := newExtractor(ctx, contractx.AgentTypeTransaction, models[contractx.AgentTypeTransaction], prompts.Transaction)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		classifier:  classifier,
		dataQuery:   dataQuery,
		transaction: transaction,
	}, nil
}
