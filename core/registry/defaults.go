package registry

// Default returns the built-in glossary column schema. Production
// deployments load the full 42-section/295-column definition from YAML;
// this set covers the sections every deployment starts from and is the
// schema used by the CLI when no file is supplied.
func Default() (*Registry, error) {
	return New(defaultColumns())
}

func defaultColumns() []Column {
	cols := []Column{
		// Introduction
		{ID: "introduction_definition_overview", SectionID: "introduction", Title: "Definition and Overview", Category: CategoryEssential, ContentType: ContentTypeText, EstimatedTokens: 300},
		{ID: "introduction_key_concepts", SectionID: "introduction", Title: "Key Concepts and Principles", Category: CategoryEssential, ContentType: ContentTypeMarkdown, EstimatedTokens: 400},
		{ID: "introduction_importance_relevance", SectionID: "introduction", Title: "Importance and Relevance in AI/ML", Category: CategoryEssential, ContentType: ContentTypeText, EstimatedTokens: 250},
		{ID: "introduction_main_category", SectionID: "introduction", Title: "Main Category", Category: CategoryEssential, ContentType: ContentTypeText, EstimatedTokens: 20},
		{ID: "introduction_sub_category", SectionID: "introduction", Title: "Sub-category", Category: CategoryEssential, ContentType: ContentTypeText, EstimatedTokens: 20},
		{ID: "introduction_brief_history", SectionID: "introduction", Title: "Brief History or Background", Category: CategoryImportant, ContentType: ContentTypeText, EstimatedTokens: 250},

		// Prerequisites
		{ID: "prerequisites_prior_knowledge", SectionID: "prerequisites", Title: "Prior Knowledge or Skills", Category: CategoryImportant, ContentType: ContentTypeList, EstimatedTokens: 200},
		{ID: "prerequisites_recommended_background", SectionID: "prerequisites", Title: "Recommended Background or Experience", Category: CategorySupplementary, ContentType: ContentTypeText, EstimatedTokens: 200},
		{ID: "prerequisites_preparatory_topics", SectionID: "prerequisites", Title: "Suggested Preparatory Topics", Category: CategorySupplementary, ContentType: ContentTypeList, EstimatedTokens: 200},

		// Theoretical concepts
		{ID: "theory_mathematical_foundations", SectionID: "theoretical_concepts", Title: "Key Mathematical and Statistical Foundations", Category: CategoryImportant, ContentType: ContentTypeMarkdown, EstimatedTokens: 500},
		{ID: "theory_underlying_algorithms", SectionID: "theoretical_concepts", Title: "Underlying Algorithms or Techniques", Category: CategoryImportant, ContentType: ContentTypeMarkdown, EstimatedTokens: 500},
		{ID: "theory_assumptions_limitations", SectionID: "theoretical_concepts", Title: "Assumptions and Limitations", Category: CategoryAdvanced, ContentType: ContentTypeText, EstimatedTokens: 300},

		// How it works
		{ID: "how_it_works_step_by_step", SectionID: "how_it_works", Title: "Step-by-Step Explanation", Category: CategoryEssential, ContentType: ContentTypeMarkdown, EstimatedTokens: 600},
		{ID: "how_it_works_input_output", SectionID: "how_it_works", Title: "Input, Output, and Intermediate Stages", Category: CategoryImportant, ContentType: ContentTypeStructuredObject, EstimatedTokens: 400},
		{ID: "how_it_works_flow_diagram", SectionID: "how_it_works", Title: "Process Flow Diagram", Category: CategorySupplementary, ContentType: ContentTypeCode, EstimatedTokens: 350},

		// Implementation
		{ID: "implementation_code_example", SectionID: "implementation", Title: "Basic Code Example", Category: CategoryImportant, ContentType: ContentTypeCode, EstimatedTokens: 600},
		{ID: "implementation_libraries_frameworks", SectionID: "implementation", Title: "Popular Libraries and Frameworks", Category: CategoryImportant, ContentType: ContentTypeList, EstimatedTokens: 250},
		{ID: "implementation_common_pitfalls", SectionID: "implementation", Title: "Common Errors or Challenges", Category: CategorySupplementary, ContentType: ContentTypeMarkdown, EstimatedTokens: 400},
		{ID: "implementation_hyperparameters", SectionID: "implementation", Title: "Hyperparameters and Tuning", Category: CategoryAdvanced, ContentType: ContentTypeStructuredObject, EstimatedTokens: 400},

		// Variants and extensions
		{ID: "variants_common_variations", SectionID: "variants", Title: "Common Variations or Extensions", Category: CategorySupplementary, ContentType: ContentTypeList, EstimatedTokens: 300},
		{ID: "variants_related_techniques", SectionID: "variants", Title: "Related or Derived Techniques", Category: CategorySupplementary, ContentType: ContentTypeList, EstimatedTokens: 300},

		// Applications
		{ID: "applications_real_world", SectionID: "applications", Title: "Real-world Use Cases", Category: CategoryEssential, ContentType: ContentTypeMarkdown, EstimatedTokens: 450},
		{ID: "applications_industries", SectionID: "applications", Title: "Industries and Domains", Category: CategoryImportant, ContentType: ContentTypeList, EstimatedTokens: 200},
		{ID: "applications_case_study", SectionID: "applications", Title: "Notable Case Study", Category: CategorySupplementary, ContentType: ContentTypeText, EstimatedTokens: 400},

		// Strengths and weaknesses
		{ID: "tradeoffs_advantages", SectionID: "tradeoffs", Title: "Advantages and Strengths", Category: CategoryImportant, ContentType: ContentTypeList, EstimatedTokens: 250},
		{ID: "tradeoffs_disadvantages", SectionID: "tradeoffs", Title: "Disadvantages and Weaknesses", Category: CategoryImportant, ContentType: ContentTypeList, EstimatedTokens: 250},
		{ID: "tradeoffs_comparison", SectionID: "tradeoffs", Title: "Comparison with Alternatives", Category: CategoryAdvanced, ContentType: ContentTypeMarkdown, EstimatedTokens: 450},

		// Evaluation
		{ID: "evaluation_metrics", SectionID: "evaluation", Title: "Relevant Evaluation Metrics", Category: CategoryImportant, ContentType: ContentTypeList, EstimatedTokens: 300},
		{ID: "evaluation_benchmarks", SectionID: "evaluation", Title: "Benchmarks and Datasets", Category: CategoryAdvanced, ContentType: ContentTypeList, EstimatedTokens: 250},

		// Ethics and responsible AI
		{ID: "ethics_considerations", SectionID: "ethics", Title: "Ethical Considerations", Category: CategoryImportant, ContentType: ContentTypeText, EstimatedTokens: 350},
		{ID: "ethics_bias_fairness", SectionID: "ethics", Title: "Bias and Fairness Implications", Category: CategorySupplementary, ContentType: ContentTypeText, EstimatedTokens: 350},

		// Historical context
		{ID: "history_key_contributors", SectionID: "historical_context", Title: "Key Contributors and Milestones", Category: CategorySupplementary, ContentType: ContentTypeMarkdown, EstimatedTokens: 350},
		{ID: "history_evolution", SectionID: "historical_context", Title: "Evolution Over Time", Category: CategorySupplementary, ContentType: ContentTypeText, EstimatedTokens: 300},

		// Learning resources
		{ID: "resources_further_reading", SectionID: "resources", Title: "Further Reading and References", Category: CategorySupplementary, ContentType: ContentTypeList, EstimatedTokens: 250},
		{ID: "resources_courses_tutorials", SectionID: "resources", Title: "Courses and Tutorials", Category: CategorySupplementary, ContentType: ContentTypeList, EstimatedTokens: 250},
		{ID: "resources_hands_on_exercise", SectionID: "resources", Title: "Hands-on Exercise", Category: CategoryAdvanced, ContentType: ContentTypeInteractive, EstimatedTokens: 500},

		// Career relevance
		{ID: "career_interview_questions", SectionID: "career", Title: "Common Interview Questions", Category: CategoryAdvanced, ContentType: ContentTypeMarkdown, EstimatedTokens: 450},
		{ID: "career_job_roles", SectionID: "career", Title: "Relevant Job Roles", Category: CategorySupplementary, ContentType: ContentTypeList, EstimatedTokens: 150},

		// Quick reference
		{ID: "quickref_did_you_know", SectionID: "quick_reference", Title: "Did You Know?", Category: CategorySupplementary, ContentType: ContentTypeText, EstimatedTokens: 120},
		{ID: "quickref_analogy", SectionID: "quick_reference", Title: "Intuitive Analogy", Category: CategoryImportant, ContentType: ContentTypeText, EstimatedTokens: 150},
		{ID: "quickref_summary", SectionID: "quick_reference", Title: "One-paragraph Summary", Category: CategoryEssential, ContentType: ContentTypeText, EstimatedTokens: 150},
		{ID: "quickref_tags", SectionID: "quick_reference", Title: "Tags and Keywords", Category: CategoryImportant, ContentType: ContentTypeList, EstimatedTokens: 60},
	}

	for i := range cols {
		cols[i].DisplayOrder = i + 1
	}
	return cols
}
