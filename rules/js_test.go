//go:build js_eval

package rules

func init() {
	evaluatorFactories = append(evaluatorFactories, evaluatorFactory{name: EngineJS, new: NewJSEvaluator})
}
