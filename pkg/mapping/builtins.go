package mapping

// Built-in variants register once at package init. The registries stay open
// for host-defined variants, which must be registered during startup, before
// any (de)serialization that involves them.
func init() {
	Rules.MustRegister(TypeIDCopy, func() Rule { return &CopyRule{} })
	Rules.MustRegister(TypeIDConstantValue, func() Rule { return &ConstantValueRule{} })
	Rules.MustRegister(TypeIDIgnore, func() Rule { return &IgnoreRule{} })
	Rules.MustRegister(TypeIDCombineRule, func() Rule { return &CombineFieldsRule{} })
	Rules.MustRegister(TypeIDStaticValue, func() Rule { return &StaticValueRule{} })

	Transformations.MustRegister(TypeIDSubstring, func() Transformation { return &SubstringTransformation{} })
	Transformations.MustRegister(TypeIDRegexMatch, func() Transformation { return &RegexMatchTransformation{} })
	Transformations.MustRegister(TypeIDInterpolate, func() Transformation { return &InterpolateTransformation{} })
	Transformations.MustRegister(TypeIDMap, func() Transformation { return &MapTransformation{} })
	Transformations.MustRegister(TypeIDCalculate, func() Transformation { return &CalculateTransformation{} })
	Transformations.MustRegister(TypeIDConditional, func() Transformation { return &ConditionalTransformation{} })
	Transformations.MustRegister(TypeIDCombine, func() Transformation { return &CombineFieldsTransformation{} })
	Transformations.MustRegister(TypeIDJQQuery, func() Transformation { return &JQQueryTransformation{} })

	for _, kind := range []string{
		TypeIDEquals, TypeIDNotEqual,
		TypeIDGreaterThan, TypeIDGreaterThanOrEqual,
		TypeIDLessThan, TypeIDLessThanOrEqual,
	} {
		kind := kind
		Comparisons.MustRegister(kind, func() Comparison { return &RelationalComparison{Kind: kind} })
	}
	for _, kind := range []string{TypeIDBetween, TypeIDNotBetween} {
		kind := kind
		Comparisons.MustRegister(kind, func() Comparison { return &RangeComparison{Kind: kind} })
	}
	for _, kind := range []string{TypeIDContains, TypeIDNotContains, TypeIDStartsWith, TypeIDEndsWith} {
		kind := kind
		Comparisons.MustRegister(kind, func() Comparison { return &TextComparison{Kind: kind} })
	}
	for _, kind := range []string{TypeIDIsNull, TypeIDIsNotNull, TypeIDIsTrue, TypeIDIsFalse} {
		kind := kind
		Comparisons.MustRegister(kind, func() Comparison { return &UnaryComparison{Kind: kind} })
	}
	for _, kind := range []string{TypeIDIn, TypeIDNotIn} {
		kind := kind
		Comparisons.MustRegister(kind, func() Comparison { return &SetComparison{Kind: kind} })
	}
	Comparisons.MustRegister(TypeIDRegexComparison, func() Comparison { return &RegexComparison{} })
	Comparisons.MustRegister(TypeIDCelExpression, func() Comparison { return &CelComparison{} })
}
